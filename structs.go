package main

import "time"

type CompileJob struct {
	Id        string
	Filename  string
	Source    string
	WorkDir   string
	OutputDir string
}

type ClientGenJob struct {
	Id      string
	Arc32   string
	WorkDir string
}

// Invocation is immutable once constructed; the runner never mutates it.
type Invocation struct {
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "SUCCESS"
	OutcomeNonZeroExit OutcomeKind = "NON_ZERO_EXIT"
	OutcomeTimedOut    OutcomeKind = "TIMED_OUT"
	OutcomeSpawnFailed OutcomeKind = "SPAWN_FAILED"
)

// Outcome carries exactly one kind per invocation. Cause is set only for
// OutcomeSpawnFailed; ExitCode is meaningful only for OutcomeNonZeroExit.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

const (
	EncodingUtf8   = "utf8"
	EncodingBase64 = "base64"
)

type Artifact struct {
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

// ArtifactSet maps a path relative to the collected root to its content.
type ArtifactSet map[string]Artifact

type FilesResponse struct {
	Ok    bool                `json:"ok"`
	Files map[string]Artifact `json:"files"`
}

type ErrorResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}
