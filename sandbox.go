package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// CreateSandbox allocates a fresh working directory for one job under the
// configured root. Names carry a random token so concurrent jobs can never
// collide. When a template directory is configured, its contents (package
// manifest plus pre-fetched dependency tree) are copied in so the compiler
// resolves dependencies without hitting the network per request.
func CreateSandbox(config *Config) (string, error) {
	workDir := filepath.Join(config.WorkRoot, strings.Join([]string{"job", uuid.New().String()}, "-"))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		glog.Error(err)
		return "", err
	}
	if config.TemplateDir != "" {
		if _, err := os.Stat(config.TemplateDir); err == nil {
			if err := copyTree(config.TemplateDir, workDir); err != nil {
				glog.Error(err)
				DestroySandbox(workDir)
				return "", err
			}
		} else if !os.IsNotExist(err) {
			glog.Error(err)
		}
	}
	glog.V(2).Infof("created sandbox %s", workDir)
	return workDir, nil
}

// DestroySandbox removes the sandbox tree. Removal failures are logged and
// swallowed: by the time cleanup runs the response is already determined and
// a leftover directory must never mask it.
func DestroySandbox(workDir string) {
	if workDir == "" {
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		glog.Errorf("failed to remove sandbox %s: %v", workDir, err)
		return
	}
	glog.V(2).Infof("removed sandbox %s", workDir)
}

func copyTree(src string, dst string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relative)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
