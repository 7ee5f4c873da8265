package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meghashyamc/ragconsole/services/parse"
)

// CollectFiles expands the given files and folders into the list of files to
// upload. Folders are walked recursively and only files with a supported
// extension are kept; hidden files and folders are skipped. Files named
// directly are kept whatever their extension so the server can report them.
func CollectFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, rootPath := range paths {
		rootPath = filepath.Clean(strings.TrimSpace(rootPath))
		info, err := os.Stat(rootPath)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", rootPath, err)
		}

		if !info.IsDir() {
			add(rootPath)
			continue
		}

		err = filepath.WalkDir(rootPath, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, os.ErrPermission) {
					return nil
				}
				return err
			}

			// Skip directories that start with '.' but not the root directory
			if entry.IsDir() && strings.HasPrefix(entry.Name(), ".") && path != rootPath {
				return filepath.SkipDir
			}

			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				return nil
			}

			if parse.IsSupported(entry.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not walk %s: %w", rootPath, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// SplitPaths splits console input on commas and newlines.
func SplitPaths(input string) []string {
	var paths []string
	for _, field := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == '\n' }) {
		if path := strings.TrimSpace(field); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}
