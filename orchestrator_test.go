package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubCompiler is a stand-in for the real compiler: it is invoked as
// <bin> <source-file> <out-dir> with the sandbox as working directory.
const stubCompiler = `#!/bin/sh
mkdir -p "$2"
name="${1%.*}"
echo '{"contract": "stub32"}' > "$2/$name.arc32.json"
echo '{"contract": "stub56"}' > "$2/$name.arc56.json"
echo 'extra' > "$2/$name.teal"
`

const stubFailingCompiler = `#!/bin/sh
echo 'SyntaxError: unexpected token' >&2
exit 1
`

const stubSleepingCompiler = `#!/bin/sh
sleep 30
`

const stubLazyCompiler = `#!/bin/sh
exit 0
`

const stubGenerator = `#!/bin/sh
printf 'export class AppClient {}\n' > "$2"
`

const stubLazyGenerator = `#!/bin/sh
exit 0
`

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub.sh")
	assert.Nil(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Timeout:      5 * time.Second,
		MaxBodyBytes: 1 << 20,
		WorkRoot:     t.TempDir(),
	}
}

func assertWorkRootEmpty(t *testing.T, workRoot string) {
	t.Helper()
	entries, err := os.ReadDir(workRoot)
	assert.Nil(t, err)
	assert.Equal(t, len(entries), 0)
}

func TestRunCompileJob(t *testing.T) {
	config := testConfig(t)
	config.CompilerBin = writeStub(t, stubCompiler)
	response, jobErr := RunCompileJob(config, []byte(`{"filename": "A.ts", "code": "class A {}"}`), "application/json")
	assert.Nil(t, jobErr)
	assert.True(t, response.Ok)
	assert.Equal(t, len(response.Files), 2)
	assert.Equal(t, response.Files["A.arc32.json"].Encoding, EncodingUtf8)
	assert.Contains(t, response.Files["A.arc32.json"].Data, "stub32")
	assert.Contains(t, response.Files["A.arc56.json"].Data, "stub56")
	// The .teal file is produced but filtered out.
	assert.NotContains(t, response.Files, "A.teal")
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunCompileJob_EmptySource(t *testing.T) {
	config := testConfig(t)
	config.CompilerBin = writeStub(t, stubCompiler)
	_, jobErr := RunCompileJob(config, []byte(`{"code": ""}`), "application/json")
	assert.NotNil(t, jobErr)
	assert.Equal(t, jobErr.Kind, ErrEmptySource)
	// Decoding failed before sandboxing; nothing was ever created.
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunCompileJob_CompilerFails(t *testing.T) {
	config := testConfig(t)
	config.CompilerBin = writeStub(t, stubFailingCompiler)
	_, jobErr := RunCompileJob(config, []byte(`{"code": "class A {}"}`), "application/json")
	assert.NotNil(t, jobErr)
	assert.Equal(t, jobErr.Kind, ErrCompilationFailed)
	assert.Contains(t, jobErr.Error(), "exited with code 1")
	assert.Contains(t, jobErr.Error(), "SyntaxError")
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunCompileJob_Timeout(t *testing.T) {
	config := testConfig(t)
	config.Timeout = 300 * time.Millisecond
	config.CompilerBin = writeStub(t, stubSleepingCompiler)
	start := time.Now()
	_, jobErr := RunCompileJob(config, []byte(`{"code": "class A {}"}`), "application/json")
	assert.NotNil(t, jobErr)
	assert.Equal(t, jobErr.Kind, ErrCompilationFailed)
	assert.Contains(t, jobErr.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunCompileJob_SpawnFailed(t *testing.T) {
	config := testConfig(t)
	config.CompilerBin = filepath.Join(t.TempDir(), "missing-compiler")
	_, jobErr := RunCompileJob(config, []byte(`{"code": "class A {}"}`), "application/json")
	assert.NotNil(t, jobErr)
	assert.Equal(t, jobErr.Kind, ErrCompilationFailed)
	assert.Contains(t, jobErr.Error(), "could not start compiler")
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunCompileJob_NoArtifacts(t *testing.T) {
	config := testConfig(t)
	config.CompilerBin = writeStub(t, stubLazyCompiler)
	_, jobErr := RunCompileJob(config, []byte(`{"code": "class A {}"}`), "application/json")
	assert.NotNil(t, jobErr)
	assert.Equal(t, jobErr.Kind, ErrNoArtifactsProduced)
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunCompileJob_TraversalFilename(t *testing.T) {
	config := testConfig(t)
	config.CompilerBin = writeStub(t, stubCompiler)
	response, jobErr := RunCompileJob(config,
		[]byte(`{"filename": "../../escape.ts", "code": "class A {}"}`), "application/json")
	assert.Nil(t, jobErr)
	// Only the final path component is used for writing.
	assert.Contains(t, response.Files, "escape.arc32.json")
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunClientGenJob(t *testing.T) {
	config := testConfig(t)
	config.GeneratorBin = writeStub(t, stubGenerator)
	response, jobErr := RunClientGenJob(config, []byte(`{"arc32Json": "{\"contract\": \"A\"}"}`))
	assert.Nil(t, jobErr)
	assert.True(t, response.Ok)
	assert.Equal(t, response.Files["client.ts"].Encoding, EncodingUtf8)
	assert.Contains(t, response.Files["client.ts"].Data, "AppClient")
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunClientGenJob_ObjectSpec(t *testing.T) {
	config := testConfig(t)
	config.GeneratorBin = writeStub(t, stubGenerator)
	response, jobErr := RunClientGenJob(config, []byte(`{"arc32Json": {"contract": "A"}}`))
	assert.Nil(t, jobErr)
	assert.Contains(t, response.Files, "client.ts")
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunClientGenJob_MissingOutput(t *testing.T) {
	config := testConfig(t)
	config.GeneratorBin = writeStub(t, stubLazyGenerator)
	_, jobErr := RunClientGenJob(config, []byte(`{"arc32Json": "{}"}`))
	assert.NotNil(t, jobErr)
	assert.Equal(t, jobErr.Kind, ErrExpectedOutputMissing)
	assertWorkRootEmpty(t, config.WorkRoot)
}

func TestRunClientGenJob_Malformed(t *testing.T) {
	config := testConfig(t)
	config.GeneratorBin = writeStub(t, stubGenerator)
	_, jobErr := RunClientGenJob(config, []byte(`not json at all`))
	assert.NotNil(t, jobErr)
	assert.Equal(t, jobErr.Kind, ErrMalformedRequest)
	assertWorkRootEmpty(t, config.WorkRoot)
}
