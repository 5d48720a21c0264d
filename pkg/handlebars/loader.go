package handlebars

import "io/fs"

// Loader supplies partial sources by name. A missing name is reported with
// ErrPartialNotFound so partial blocks can fall back to their body.
type Loader interface {
	Load(name string) (string, error)
}

type MemoryLoader map[string]string

func (m MemoryLoader) Load(name string) (string, error) {
	if s, ok := m[name]; ok {
		return s, nil
	}
	return "", ErrPartialNotFound{Name: name}
}

// DirLoader reads partials from a file tree, trying the bare name first and
// then name + ".hbs".
type DirLoader struct {
	fsys fs.FS
}

func NewDirLoader(fsys fs.FS) *DirLoader {
	return &DirLoader{fsys: fsys}
}

func (d *DirLoader) Load(name string) (string, error) {
	for _, candidate := range []string{name, name + ".hbs"} {
		if b, err := fs.ReadFile(d.fsys, candidate); err == nil {
			return string(b), nil
		}
	}
	return "", ErrPartialNotFound{Name: name}
}
