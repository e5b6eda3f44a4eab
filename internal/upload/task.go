package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Task is one file of a batch. Open is called once, right before the file
// is sent.
type Task struct {
	Name string
	Size int64
	Path string
	Open func() (io.ReadCloser, error)
}

// FromBytes creates a task over in-memory content.
func FromBytes(name string, data []byte) Task {
	return Task{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromFile creates a task for a local file, named by its base name.
func FromFile(path string) (Task, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Task{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Task{}, fmt.Errorf("%s is a directory", path)
	}
	return Task{
		Name: filepath.Base(path),
		Size: info.Size(),
		Path: path,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
