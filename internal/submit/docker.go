package submit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

// Labels put on every container started by the Docker submitter.
const (
	LabelManagedBy = "managed-by"
	LabelWorkDir   = "joblauncher.workdir"
	managedByValue = "joblauncher"
)

// Docker submits commands as detached containers on the host Docker daemon.
// The working directory is bind-mounted at the same path, so a job writing
// its exit-status channel inside the container is visible to the launcher.
//
// Submission succeeds once the container has started; the container's own
// exit code is never consulted.
type Docker struct {
	client      *client.Client
	cfg         DockerConfig
	logger      *slog.Logger
	containers  *containerSet
	imageReady  atomic.Bool
	stopTimeout int
}

// NewDocker creates a Docker submitter using the daemon from the environment
// (DOCKER_HOST etc.).
func NewDocker(cfg DockerConfig) (*Docker, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("docker image is required")
	}

	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}

	return &Docker{
		client:      dockerClient,
		cfg:         cfg,
		logger:      slog.With("component", "submit.docker", "image", cfg.Image),
		containers:  newContainerSet(),
		stopTimeout: int(stopTimeout.Seconds()),
	}, nil
}

// Submit starts command in a new detached container.
func (d *Docker) Submit(ctx context.Context, command, workDir string) error {
	if err := d.ensureImage(ctx); err != nil {
		return err
	}

	name := containerName(workDir)
	resp, err := d.client.ContainerCreate(ctx, d.containerConfig(command, workDir), d.hostConfig(workDir), nil, nil, name)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	d.containers.add(resp.ID)

	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		d.removeContainer(context.WithoutCancel(ctx), resp.ID)
		return fmt.Errorf("failed to start container: %w", err)
	}

	d.logger.Debug("Started job container", "containerId", resp.ID, "name", name, "workDir", workDir)
	return nil
}

// Ready checks if the Docker daemon is reachable and responsive.
func (d *Docker) Ready(ctx context.Context) error {
	_, err := d.client.Ping(ctx)
	return err
}

// Prune removes containers started by this submitter that have exited.
// Running containers are left alone.
func (d *Docker) Prune(ctx context.Context) (int, error) {
	containers, err := d.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", LabelManagedBy+"="+managedByValue),
			filters.Arg("status", "exited"),
		),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers: %w", err)
	}

	var removed int
	for _, c := range containers {
		if !d.containers.has(c.ID) {
			continue
		}
		if err := d.client.ContainerRemove(ctx, c.ID, container.RemoveOptions{}); err != nil {
			d.logger.Warn("Failed to remove exited container", "containerId", c.ID, "error", err)
			continue
		}
		d.containers.remove(c.ID)
		removed++
	}
	return removed, nil
}

// Close removes exited containers and releases the client. Containers still
// running are detached jobs and keep running.
func (d *Docker) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(d.stopTimeout)*time.Second)
	defer cancel()

	if n, err := d.Prune(ctx); err != nil {
		d.logger.Warn("Failed to prune job containers", "error", err)
	} else if n > 0 {
		d.logger.Info("Pruned job containers", "count", n)
	}
	return d.client.Close()
}

func (d *Docker) containerConfig(command, workDir string) *container.Config {
	return &container.Config{
		Image:      d.cfg.Image,
		Cmd:        []string{"/bin/sh", "-c", command},
		Env:        d.cfg.Env,
		User:       d.cfg.User,
		WorkingDir: workDir,
		Labels: map[string]string{
			LabelManagedBy: managedByValue,
			LabelWorkDir:   workDir,
		},
	}
}

func (d *Docker) hostConfig(workDir string) *container.HostConfig {
	hc := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: workDir,
				Target: workDir,
			},
		},
		ExtraHosts: d.cfg.ExtraHosts,
	}
	if d.cfg.Network != "" {
		hc.NetworkMode = container.NetworkMode(d.cfg.Network)
	}
	return hc
}

// ensureImage makes the job image available. Only success is remembered:
// a failed pull is attempted again on the next submission.
func (d *Docker) ensureImage(ctx context.Context) error {
	if d.imageReady.Load() {
		return nil
	}
	if err := d.pullImageIfNeeded(context.WithoutCancel(ctx), d.cfg.Image); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", d.cfg.Image, err)
	}
	d.imageReady.Store(true)
	return nil
}

func (d *Docker) pullImageIfNeeded(ctx context.Context, imageName string) error {
	_, err := d.client.ImageInspect(ctx, imageName)
	if err == nil {
		return nil
	}

	d.logger.Info("Pulling image")
	reader, err := d.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (d *Docker) removeContainer(ctx context.Context, containerID string) {
	timeout := d.stopTimeout
	_ = d.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	_ = d.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	d.containers.remove(containerID)
}

// containerName derives a unique, Docker-safe name from the work dir's base name.
func containerName(workDir string) string {
	return fmt.Sprintf("joblauncher-%s-%s", sanitizeName(workDir), uuid.NewString()[:8])
}

// sanitizeName keeps the characters Docker allows in names from the last
// path element of p.
func sanitizeName(p string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		default:
			return '-'
		}
	}, filepath.Base(strings.TrimRight(p, "/")))

	base = strings.TrimLeft(base, ".-")
	if base == "" {
		return "job"
	}
	if len(base) > 48 {
		base = base[len(base)-48:]
	}
	return base
}

// containerSet tracks containers started by this process.
type containerSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func newContainerSet() *containerSet {
	return &containerSet{ids: make(map[string]struct{})}
}

func (s *containerSet) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *containerSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

func (s *containerSet) has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *containerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
