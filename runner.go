package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
)

// maxCaptureBytes caps stdout/stderr capture so a chatty compiler cannot
// exhaust memory. Response-level truncation is separate and much smaller.
const maxCaptureBytes = 1 << 20

// RunProcess spawns the invocation's command and returns exactly one
// outcome: success, non-zero exit, timed out, or spawn failure. The caller
// is never blocked beyond the invocation timeout: the child runs in its own
// process group and the whole group is killed when the clock elapses, so
// grandchildren cannot keep the pipes open either.
func RunProcess(invocation Invocation) Outcome {
	glog.V(2).Infof("running %s %v in %s", invocation.Command, invocation.Args, invocation.Dir)
	command := exec.Command(invocation.Command, invocation.Args...)
	command.Dir = invocation.Dir
	command.Env = mergeEnv(os.Environ(), invocation.Env)
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	command.Stdout = &cappedWriter{writer: &stdout, remaining: maxCaptureBytes}
	command.Stderr = &cappedWriter{writer: &stderr, remaining: maxCaptureBytes}

	if err := command.Start(); err != nil {
		glog.Error(err)
		return Outcome{Kind: OutcomeSpawnFailed, Cause: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- command.Wait()
	}()

	select {
	case <-time.After(invocation.Timeout):
		// Negative pid kills the entire process group; SIGKILL is not
		// catchable so the wait below always returns.
		if err := syscall.Kill(-command.Process.Pid, syscall.SIGKILL); err != nil {
			glog.Errorf("failed to kill process group %d: %v", command.Process.Pid, err)
		}
		<-done
		glog.Errorf("%s timed out after %s", invocation.Command, invocation.Timeout)
		return Outcome{Kind: OutcomeTimedOut, Stdout: stdout.String(), Stderr: stderr.String()}
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				glog.V(2).Infof("%s exited with code %d", invocation.Command, exitErr.ExitCode())
				return Outcome{
					Kind:     OutcomeNonZeroExit,
					ExitCode: exitErr.ExitCode(),
					Stdout:   stdout.String(),
					Stderr:   stderr.String(),
				}
			}
			glog.Error(err)
			return Outcome{Kind: OutcomeSpawnFailed, Cause: err, Stderr: stderr.String()}
		}
		return Outcome{Kind: OutcomeSuccess, Stdout: stdout.String(), Stderr: stderr.String()}
	}
}

func mergeEnv(existing []string, overrides map[string]string) []string {
	merged := make([]string, 0, len(existing)+len(overrides))
	merged = append(merged, existing...)
	for key, value := range overrides {
		merged = append(merged, strings.Join([]string{key, value}, "="))
	}
	return merged
}

// cappedWriter stops writing after a byte limit; the excess is discarded,
// not an error, so the child never sees a broken pipe.
type cappedWriter struct {
	writer    io.Writer
	remaining int
}

func (c *cappedWriter) Write(data []byte) (int, error) {
	if c.remaining <= 0 {
		return len(data), nil
	}
	truncated := data
	if len(truncated) > c.remaining {
		truncated = truncated[:c.remaining]
	}
	written, err := c.writer.Write(truncated)
	c.remaining -= written
	if err != nil {
		return written, err
	}
	return len(data), nil
}
