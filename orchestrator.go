package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

const (
	outputDirName = "out"
	arc32Filename = "application.arc32.json"
)

// RunCompileJob drives one compile request end to end: recover the payload,
// allocate a sandbox, write the source, invoke the compiler, collect and
// filter its output. The sandbox is destroyed on every path out of this
// function once it exists.
func RunCompileJob(config *Config, body []byte, contentType string) (*FilesResponse, *JobError) {
	recovered, jobErr := RecoverPayload(body, contentType)
	if jobErr != nil {
		return nil, jobErr
	}
	job := CompileJob{
		Id:       uuid.New().String(),
		Filename: recovered.Filename,
		Source:   recovered.Source,
	}
	glog.V(2).Infof("compile job %s: %s (%d bytes)", job.Id, job.Filename, len(job.Source))

	workDir, err := CreateSandbox(config)
	if err != nil {
		return nil, newJobError(ErrEnvironment, "could not allocate working directory")
	}
	defer DestroySandbox(workDir)
	job.WorkDir = workDir
	job.OutputDir = filepath.Join(workDir, outputDirName)

	if err := os.WriteFile(filepath.Join(workDir, job.Filename), []byte(job.Source), 0o644); err != nil {
		glog.Error(err)
		return nil, newJobError(ErrEnvironment, "could not write source file")
	}

	outcome := RunProcess(Invocation{
		Command: config.CompilerBin,
		Args:    []string{job.Filename, outputDirName},
		Dir:     workDir,
		Timeout: config.Timeout,
	})
	if jobErr := classifyOutcome(outcome, config); jobErr != nil {
		return nil, jobErr
	}

	artifacts, err := CollectArtifacts(job.OutputDir)
	if err != nil {
		return nil, newJobError(ErrEnvironment, "could not read compiler output")
	}
	filtered := FilterArtifacts(artifacts, artifactSuffixes)
	if len(filtered) == 0 {
		if len(artifacts) == 0 {
			return nil, newJobError(ErrNoArtifactsProduced, "compiler exited cleanly but produced no output")
		}
		return nil, newJobError(ErrNoArtifactsProduced,
			fmt.Sprintf("compiler produced no %s artifacts", strings.Join(artifactSuffixes, "/")))
	}
	glog.V(2).Infof("compile job %s: %d artifacts", job.Id, len(filtered))
	return &FilesResponse{Ok: true, Files: filtered}, nil
}

// RunClientGenJob follows the same lifecycle with the compiler swapped for
// the client generator and collection replaced by reading the one expected
// output file.
func RunClientGenJob(config *Config, body []byte) (*FilesResponse, *JobError) {
	arc32, jobErr := extractArc32(body)
	if jobErr != nil {
		return nil, jobErr
	}
	job := ClientGenJob{Id: uuid.New().String(), Arc32: arc32}
	glog.V(2).Infof("client generation job %s (%d bytes)", job.Id, len(job.Arc32))

	workDir, err := CreateSandbox(config)
	if err != nil {
		return nil, newJobError(ErrEnvironment, "could not allocate working directory")
	}
	defer DestroySandbox(workDir)
	job.WorkDir = workDir

	if err := os.WriteFile(filepath.Join(workDir, arc32Filename), []byte(job.Arc32), 0o644); err != nil {
		glog.Error(err)
		return nil, newJobError(ErrEnvironment, "could not write application spec")
	}

	outcome := RunProcess(Invocation{
		Command: config.GeneratorBin,
		Args:    []string{arc32Filename, clientFilename},
		Dir:     workDir,
		Timeout: config.Timeout,
	})
	if jobErr := classifyGeneratorOutcome(outcome, config); jobErr != nil {
		return nil, jobErr
	}

	client, err := os.ReadFile(filepath.Join(workDir, clientFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newJobErrorWithLogs(ErrExpectedOutputMissing,
				"generator exited cleanly but produced no client", outcome.Stderr)
		}
		glog.Error(err)
		return nil, newJobError(ErrEnvironment, "could not read generated client")
	}
	return &FilesResponse{
		Ok:    true,
		Files: map[string]Artifact{clientFilename: {Encoding: EncodingUtf8, Data: string(client)}},
	}, nil
}

// extractArc32 accepts {arc32Json: "..."} with either a string or an inline
// object value; objects are passed through verbatim.
func extractArc32(body []byte) (string, *JobError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", newJobError(ErrMalformedRequest, "request body is not valid JSON")
	}
	raw, ok := fields["arc32Json"]
	if !ok {
		return "", newJobError(ErrMalformedRequest, "missing arc32Json field")
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			return "", newJobError(ErrEmptySource, "arc32Json is empty")
		}
		return asString, nil
	}
	return string(raw), nil
}

func classifyOutcome(outcome Outcome, config *Config) *JobError {
	switch outcome.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeNonZeroExit:
		return newJobErrorWithLogs(ErrCompilationFailed,
			strings.Join([]string{"compiler exited with code", strconv.Itoa(outcome.ExitCode)}, " "),
			combineLogs(outcome))
	case OutcomeTimedOut:
		return newJobErrorWithLogs(ErrCompilationFailed,
			fmt.Sprintf("compilation timed out after %s", config.Timeout), outcome.Stderr)
	case OutcomeSpawnFailed:
		return newJobErrorWithLogs(ErrCompilationFailed,
			fmt.Sprintf("could not start compiler %s", config.CompilerBin), outcome.Cause.Error())
	default:
		return newJobError(ErrInternal, "unknown process outcome")
	}
}

func classifyGeneratorOutcome(outcome Outcome, config *Config) *JobError {
	switch outcome.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeNonZeroExit:
		return newJobErrorWithLogs(ErrCompilationFailed,
			strings.Join([]string{"generator exited with code", strconv.Itoa(outcome.ExitCode)}, " "),
			combineLogs(outcome))
	case OutcomeTimedOut:
		return newJobErrorWithLogs(ErrCompilationFailed,
			fmt.Sprintf("client generation timed out after %s", config.Timeout), outcome.Stderr)
	case OutcomeSpawnFailed:
		return newJobErrorWithLogs(ErrCompilationFailed,
			fmt.Sprintf("could not start generator %s", config.GeneratorBin), outcome.Cause.Error())
	default:
		return newJobError(ErrInternal, "unknown process outcome")
	}
}

func combineLogs(outcome Outcome) string {
	if outcome.Stderr != "" && outcome.Stdout != "" {
		return strings.Join([]string{outcome.Stderr, outcome.Stdout}, "\n")
	}
	if outcome.Stderr != "" {
		return outcome.Stderr
	}
	return outcome.Stdout
}
