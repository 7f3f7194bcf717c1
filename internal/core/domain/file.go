package domain

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// UploadFile is the opaque handle of a user-selected file.
type UploadFile interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type pathFile struct {
	path string
}

func FileFromPath(path string) UploadFile {
	return pathFile{path: path}
}

func (f pathFile) Name() string { return filepath.Base(f.path) }

func (f pathFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type memoryFile struct {
	name string
	data []byte
}

func FileFromBytes(name string, data []byte) UploadFile {
	return memoryFile{name: name, data: data}
}

func (f memoryFile) Name() string { return f.name }

func (f memoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
