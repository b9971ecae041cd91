package config

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// LibraryExt is the file extension ScanDir treats as a plugin library.
const LibraryExt = ".so"

// ScanDir returns all plugin libraries under dir, sorted for a
// deterministic search order.
func ScanDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), LibraryExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library directory %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

// ResolveLibraries returns the explicit libraries followed by those found in
// the library directories, each path once.
func (c Config) ResolveLibraries() ([]string, error) {
	out := slices.Clone(c.Libraries)
	for _, dir := range c.LibraryDirs {
		found, err := ScanDir(dir)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
