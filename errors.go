package main

import (
	"net/http"
	"strings"
)

type ErrKind string

const (
	ErrMalformedRequest      ErrKind = "MALFORMED_REQUEST"
	ErrEmptySource           ErrKind = "EMPTY_SOURCE"
	ErrEnvironment           ErrKind = "ENVIRONMENT_ERROR"
	ErrCompilationFailed     ErrKind = "COMPILATION_FAILED"
	ErrNoArtifactsProduced   ErrKind = "NO_ARTIFACTS_PRODUCED"
	ErrExpectedOutputMissing ErrKind = "EXPECTED_OUTPUT_MISSING"
	ErrInternal              ErrKind = "INTERNAL_ERROR"
)

// maxLogBytes bounds the process logs attached to an error response. The
// runner captures more; only the transport surface is truncated.
const maxLogBytes = 8 << 10

// JobError is the only error shape that crosses component boundaries. Every
// layer classifies its own faults into one of the kinds above before
// returning to the orchestrator.
type JobError struct {
	Kind    ErrKind
	Message string
	Logs    string
}

func (e *JobError) Error() string {
	if e.Logs == "" {
		return e.Message
	}
	return strings.Join([]string{e.Message, truncateLogs(e.Logs)}, ": ")
}

func newJobError(kind ErrKind, message string) *JobError {
	return &JobError{Kind: kind, Message: message}
}

func newJobErrorWithLogs(kind ErrKind, message string, logs string) *JobError {
	return &JobError{Kind: kind, Message: message, Logs: logs}
}

// httpStatus maps client-input faults to 400 and everything else to 500.
// Compiler diagnostics ride in the error body, never service stack traces.
func (e *JobError) httpStatus() int {
	switch e.Kind {
	case ErrMalformedRequest, ErrEmptySource:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func truncateLogs(logs string) string {
	if len(logs) <= maxLogBytes {
		return logs
	}
	return logs[:maxLogBytes] + "... (truncated)"
}
