package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileLoader loads models from pre-extracted element JSON files, one file
// per project (<dir>/<project_id>.json). The extraction pipeline that
// turns a raw model file into element JSON runs outside this service.
type FileLoader struct {
	dir string
}

// NewFileLoader creates a FileLoader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{dir: dir}
}

func (l *FileLoader) Load(ctx context.Context, projectID string) (Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(l.dir, filepath.Base(projectID)+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("project %q: %w", projectID, ErrModelUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var elements []Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("decode model file %s: %w", path, err)
	}

	return NewMemoryModel(elements...), nil
}
