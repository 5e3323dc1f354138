// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all
// files ending with the specified extension. It returns a slice of their
// full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// defExtensions in resolution priority order: a directory holding both a
// system and an app definition resolves to the system.
var defExtensions = []string{".sdef", ".adef", ".cdef"}

// ResolveDefFile resolves a user-supplied path to one definition file.
// A file path is returned as-is; a directory is searched one level deep
// for exactly one definition file of the highest-priority kind present.
func ResolveDefFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("can't access '%s': %w", path, err)
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("can't read directory '%s': %w", path, err)
	}
	for _, ext := range defExtensions {
		var matches []string
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ext) {
				matches = append(matches, filepath.Join(path, entry.Name()))
			}
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
		if len(matches) > 1 {
			return "", fmt.Errorf("'%s' contains more than one %s file; specify one explicitly", path, ext)
		}
	}
	return "", fmt.Errorf("no definition file found in '%s'", path)
}
