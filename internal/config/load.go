package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Loaded is a resolved config plus where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	// Exists is false when Path was absent and defaults are in effect.
	Exists bool
}

// Dir is the directory holding the config file. Preferences and
// credentials are stored alongside it, so an explicit --config keeps them
// together.
func (l Loaded) Dir() string {
	return filepath.Dir(l.Path)
}

// Load reads and validates the config at explicitPath, or at the XDG
// location when explicitPath is empty. A missing file is not an error.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		loaded.Warnings = []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}}
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	loaded.Config, loaded.Warnings, err = Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	loaded.Exists = true
	return loaded, nil
}
