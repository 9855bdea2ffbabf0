// Package project loads and saves .xcodeproj bundles and runs edits against
// them one at a time.
package project

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/errors"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/graph"
)

const (
	// BundleExt is the extension of a project bundle directory.
	BundleExt = ".xcodeproj"
	// GraphFile is the file inside a bundle that holds the project graph.
	GraphFile = "project.pbxproj"
)

// Locate maps a project path to its bundle directory and graph file. The
// path names either a .xcodeproj bundle or the project.pbxproj inside one.
func Locate(p string) (bundle, file string, err error) {
	clean := filepath.Clean(p)
	switch {
	case filepath.Base(clean) == GraphFile:
		return filepath.Dir(clean), clean, nil
	case strings.HasSuffix(clean, BundleExt):
		return clean, filepath.Join(clean, GraphFile), nil
	default:
		return "", "", errors.New(errors.ErrCodeInvalidInput, "%s is not a %s bundle", p, BundleExt)
	}
}

// Handle is one loaded project.
type Handle struct {
	// Bundle is the .xcodeproj directory and File the graph file inside it.
	Bundle string
	File   string
	// SourceRoot is the directory containing the bundle.
	SourceRoot string
	Store      *graph.Store
	// Original is the file content as loaded.
	Original []byte

	mode os.FileMode
}

// Name is the bundle name without its extension.
func (h *Handle) Name() string {
	return strings.TrimSuffix(filepath.Base(h.Bundle), BundleExt)
}

// Open reads and decodes a project.
func Open(p string) (*Handle, error) {
	bundle, file, err := Locate(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(file)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeNotFound, "project not found at %s", bundle)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "stat %s", file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", file)
	}
	s, err := graph.Decode(data)
	if err != nil {
		if errors.GetCode(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse %s", file)
	}

	h := &Handle{
		Bundle:     bundle,
		File:       file,
		SourceRoot: filepath.Dir(bundle),
		Store:      s,
		Original:   data,
		mode:       info.Mode().Perm(),
	}
	s.Name = h.Name()
	return h, nil
}

// Save encodes the store and replaces the graph file atomically. It returns
// the bytes written.
func (h *Handle) Save() ([]byte, error) {
	data := h.Store.Encode()
	mode := h.mode
	if mode == 0 {
		mode = 0o644
	}
	if err := WriteAtomic(h.File, data, mode); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "write %s", h.File)
	}
	return data, nil
}

// WriteAtomic writes data to a temporary file in the target's directory,
// syncs it and renames it over path. Readers see the old or the new content,
// never a mix.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
