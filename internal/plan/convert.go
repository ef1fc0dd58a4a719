package plan

import (
	"fmt"
	"joblauncher/internal/launcher"
	"joblauncher/internal/machine"
	"joblauncher/internal/statusfile"
	"path/filepath"
	"strings"
	"time"
)

// CommandPlaceholder marks where Submit embeds the job's command.
const CommandPlaceholder = "{command}"

// RunTemplater renders the machine's run command.
type RunTemplater interface {
	RunCommand(arguments string) string
}

// LauncherJob converts a launched plan job. m may be nil when the plan has
// no run jobs.
func LauncherJob(j Job, m RunTemplater) (*launcher.Job, error) {
	if !j.Launched() {
		return nil, fmt.Errorf("job %s: %s jobs are not launched", j.ID, j.Kind)
	}

	command := j.Command
	if j.Kind == KindRun {
		if m == nil {
			return nil, fmt.Errorf("job %s: run jobs need a machine", j.ID)
		}
		command = m.RunCommand(j.Args)
	}
	if j.WriteExitStatus {
		command = machine.WithExitStatus(command, filepath.Join(j.WorkDir, statusfile.FileName))
	}

	submit := command
	if j.Submit != "" {
		submit = strings.ReplaceAll(j.Submit, CommandPlaceholder, command)
	}

	errorFile := j.ErrorFile
	if errorFile != "" && !filepath.IsAbs(errorFile) {
		errorFile = filepath.Join(j.WorkDir, errorFile)
	}

	return &launcher.Job{
		ID:            j.ID,
		BaseCommand:   command,
		SubmitCommand: submit,
		WorkDir:       j.WorkDir,
		MaxDuration:   time.Duration(j.MaxDurationSeconds) * time.Second,
		ErrorFile:     errorFile,
		Repeat:        j.Repeat,
	}, nil
}
