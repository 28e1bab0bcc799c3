package twigo

import (
	"os"
	"path/filepath"
	"strings"
)

// Loader maps a template name to its raw source text. Load is called
// at most once per distinct name per Engine lifetime; later requests
// hit the template cache.
type Loader interface {
	Load(name string) (string, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(name string) (string, error)

func (f LoaderFunc) Load(name string) (string, error) {
	return f(name)
}

// MemoryLoader serves templates from an in-memory map.
type MemoryLoader map[string]string

func (m MemoryLoader) Load(name string) (string, error) {
	source, ok := m[name]
	if !ok {
		return "", NewError(ErrTemplateNotFound, name)
	}
	return source, nil
}

// FileSystemLoader serves templates from files under a root directory.
// Names that escape the root (absolute paths or ".." segments) are
// rejected as not found.
type FileSystemLoader struct {
	Root string
}

func NewFileSystemLoader(root string) *FileSystemLoader {
	return &FileSystemLoader{Root: root}
}

func (l *FileSystemLoader) Load(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", NewError(ErrTemplateNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(l.Root, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewError(ErrTemplateNotFound, name)
		}
		return "", NewError(ErrTemplateLoadFailed, name+": "+err.Error())
	}
	return string(data), nil
}
