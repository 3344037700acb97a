package challenges

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DescriptionNotFound is shown when a challenge ships no description.
const DescriptionNotFound = "Description not found for this challenge."

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderDescription converts the Markdown description of a challenge to
// HTML. Raw HTML inside the Markdown is dropped.
func renderDescription(dir, file string) (string, error) {
	src, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DescriptionNotFound, nil
		}
		return "", fmt.Errorf("read description: %w", err)
	}

	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	return buf.String(), nil
}
