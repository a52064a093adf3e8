package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/golang/glog"
)

// CollectArtifacts walks the tree under root and returns every regular file
// keyed by its slash-separated path relative to root. WalkDir visits entries
// in lexical order, which keeps the key set deterministic for a given tree.
// A missing root is an empty set, not an error: a compiler that produced
// nothing is reported as NoArtifactsProduced by the orchestrator, not as a
// filesystem fault.
func CollectArtifacts(root string) (ArtifactSet, error) {
	artifacts := ArtifactSet{}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return artifacts, nil
	}
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		artifacts[filepath.ToSlash(relative)] = encodeArtifact(content)
		return nil
	})
	if err != nil {
		glog.Error(err)
		return nil, err
	}
	return artifacts, nil
}

// encodeArtifact stores decodable text verbatim and everything else as
// base64 so binary outputs survive the JSON response intact.
func encodeArtifact(content []byte) Artifact {
	if utf8.Valid(content) {
		return Artifact{Encoding: EncodingUtf8, Data: string(content)}
	}
	return Artifact{Encoding: EncodingBase64, Data: base64.StdEncoding.EncodeToString(content)}
}

// FilterArtifacts returns a new set holding only files whose name ends in
// one of the given suffixes. The input set is never mutated; applying the
// same filter twice yields the same set.
func FilterArtifacts(artifacts ArtifactSet, suffixes []string) ArtifactSet {
	filtered := ArtifactSet{}
	for name, artifact := range artifacts {
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				filtered[name] = artifact
				break
			}
		}
	}
	return filtered
}
