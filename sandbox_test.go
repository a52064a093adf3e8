package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateSandbox_UniqueNames(t *testing.T) {
	config := &Config{WorkRoot: t.TempDir()}
	first, err := CreateSandbox(config)
	assert.Nil(t, err)
	second, err := CreateSandbox(config)
	assert.Nil(t, err)
	assert.NotEqual(t, first, second)
	assert.DirExists(t, first)
	assert.DirExists(t, second)
}

func TestCreateSandbox_TemplateSeeding(t *testing.T) {
	template := t.TempDir()
	assert.Nil(t, os.WriteFile(filepath.Join(template, "package.json"), []byte(`{"name": "deps"}`), 0o644))
	assert.Nil(t, os.MkdirAll(filepath.Join(template, "node_modules", "somelib"), 0o755))
	assert.Nil(t, os.WriteFile(filepath.Join(template, "node_modules", "somelib", "index.js"), []byte("module.exports = {}"), 0o644))

	config := &Config{WorkRoot: t.TempDir(), TemplateDir: template}
	workDir, err := CreateSandbox(config)
	assert.Nil(t, err)
	assert.FileExists(t, filepath.Join(workDir, "package.json"))
	assert.FileExists(t, filepath.Join(workDir, "node_modules", "somelib", "index.js"))
}

func TestCreateSandbox_MissingTemplate(t *testing.T) {
	config := &Config{WorkRoot: t.TempDir(), TemplateDir: filepath.Join(t.TempDir(), "nope")}
	workDir, err := CreateSandbox(config)
	assert.Nil(t, err)
	assert.DirExists(t, workDir)
}

func TestDestroySandbox(t *testing.T) {
	config := &Config{WorkRoot: t.TempDir()}
	workDir, err := CreateSandbox(config)
	assert.Nil(t, err)
	DestroySandbox(workDir)
	assert.NoDirExists(t, workDir)
}

func TestDestroySandbox_AlreadyGone(t *testing.T) {
	// Must not panic or propagate; destroy is best-effort by contract.
	DestroySandbox(filepath.Join(t.TempDir(), "never-created"))
	DestroySandbox("")
}
