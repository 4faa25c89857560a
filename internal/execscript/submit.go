package execscript

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultSubmitTimeout bounds one submission when no timeout is configured.
const DefaultSubmitTimeout = 30 * time.Second

// Submitter hands batch scripts to the scheduler.
type Submitter struct {
	// Command is the submission binary; empty means sbatch.
	Command string
	Timeout time.Duration
	Log     *zap.Logger
}

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Name  string
	JobID string
	Err   error
}

// Submit submits each script from its own directory, in order. A failed
// submission is logged and recorded; it does not stop the others.
func (s Submitter) Submit(ctx context.Context, scripts []Script) []SubmitResult {
	results := make([]SubmitResult, 0, len(scripts))
	for _, sc := range scripts {
		if ctx.Err() != nil {
			results = append(results, SubmitResult{Name: sc.Name, Err: ctx.Err()})
			continue
		}
		id, err := s.submit(ctx, sc)
		if err != nil {
			s.Log.Error("submission failed", zap.String("bundle", sc.Name), zap.Error(err))
		} else {
			s.Log.Info("submitted "+sc.Name, zap.String("job", id))
		}
		results = append(results, SubmitResult{Name: sc.Name, JobID: id, Err: err})
	}
	return results
}

func (s Submitter) submit(ctx context.Context, sc Script) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	command := s.Command
	if command == "" {
		command = "sbatch"
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, command, filepath.Base(sc.Path))
	cmd.Dir = filepath.Dir(sc.Path)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s %s: timed out after %s", command, sc.Path, timeout)
		}
		return "", fmt.Errorf("%s %s: %w: %s", command, sc.Path, err, strings.TrimSpace(stderr.String()))
	}
	return jobID(stdout.String()), nil
}

// jobID extracts the id from "Submitted batch job <id>".
func jobID(out string) string {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	if _, err := strconv.Atoi(last); err != nil {
		return ""
	}
	return last
}

// Failed counts the failed submissions.
func Failed(results []SubmitResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
