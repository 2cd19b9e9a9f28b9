package world

import (
	_ "embed"
	"errors"
	"io/fs"
)

//go:embed demo.yaml
var demoScene []byte

// Demo returns the built-in demo scene.
func Demo() (*Scene, error) {
	return Parse(demoScene)
}

// LoadOrDemo loads path, falling back to the demo scene when the file does
// not exist. The bool reports whether the demo was used.
func LoadOrDemo(path string) (*Scene, bool, error) {
	if path != "" {
		s, err := Load(path)
		if err == nil {
			return s, false, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, err
		}
	}
	s, err := Demo()
	return s, true, err
}
