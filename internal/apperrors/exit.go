package apperrors

// FailureExitCode is the status the orchestrating process exits with on
// any unrecoverable failure.
const FailureExitCode = 2

// ExitCode maps an error to the orchestrating process exit status.
// Submission exhaustion, job failure, timeout and setup errors are
// indistinguishable at this level; only the logged diagnostic differs.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return FailureExitCode
}
