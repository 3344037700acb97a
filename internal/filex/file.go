// Package filex creates local directories and files for downloaded content.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrInvalidName = errors.New("invalid file name")

// EnsureSubdDir creates the directory cwd/parts... if needed and returns its
// absolute path.
func EnsureSubdDir(parts ...string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	for _, p := range parts {
		if !validName(p) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, p)
		}
	}
	dir := filepath.Join(append([]string{cwd}, parts...)...)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// Create creates or truncates dir/name. name must be a bare file name.
func Create(dir, name string) (*os.File, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o660)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return f, nil
}

func validName(s string) bool {
	return s != "" && s != "." && s != ".." && filepath.Base(s) == s
}
