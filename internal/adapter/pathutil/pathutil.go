// Package pathutil normalises raster file paths before they are opened.
package pathutil

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// Expand replaces a leading "~" with the user's home directory and makes the path absolute.
// It does not touch the filesystem.
func Expand(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", p, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to make %q absolute: %w", expanded, err)
	}
	return abs, nil
}
