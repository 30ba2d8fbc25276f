package chunker

import (
	"context"
	"os"
)

// textExtractor covers plain text and markdown files.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
