package engine

import (
	"context"
	"fmt"
	"os"
)

// FileSource is a ModelSource reading all three artifacts from disk. An empty
// DictPath yields the built-in alphabet through the usual fallback path.
type FileSource struct {
	DetPath  string
	RecPath  string
	DictPath string
}

func (s FileSource) DetectionModel(ctx context.Context) ([]byte, error) {
	return readArtifact(ctx, s.DetPath)
}

func (s FileSource) RecognitionModel(ctx context.Context) ([]byte, error) {
	return readArtifact(ctx, s.RecPath)
}

func (s FileSource) Dictionary(ctx context.Context) ([]byte, error) {
	if s.DictPath == "" {
		return nil, fmt.Errorf("no dictionary path configured")
	}
	return readArtifact(ctx, s.DictPath)
}

func readArtifact(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
