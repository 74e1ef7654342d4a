// Package config loads optional defaults for tapbump from a .tapbump.toml
// file. Flags always override file values; a missing file is not an error.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/tapbump/pkg/errors"
)

// FileName is the config file looked up in the current directory.
const FileName = ".tapbump.toml"

// File holds the defaults a config file can provide. All fields are
// optional.
type File struct {
	Repository string `toml:"repository"`
	Tap        string `toml:"tap"`
	Formula    string `toml:"formula"`
	Name       string `toml:"name"`
	Message    string `toml:"message"`
}

// Load reads the first config file found: .tapbump.toml in the current
// directory, then tapbump/tapbump.toml under the XDG config home. When no
// file exists an empty File is returned.
func Load() (*File, error) {
	paths := []string{FileName}
	if xdg.ConfigHome != "" {
		paths = append(paths, filepath.Join(xdg.ConfigHome, "tapbump", "tapbump.toml"))
	}

	for _, path := range paths {
		cfg, err := LoadFrom(path)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}
	return &File{}, nil
}

// LoadFrom reads a single config file. It returns nil without error when
// the file does not exist.
func LoadFrom(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "failed to read %s", path)
	}

	var cfg File
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "failed to parse %s", path)
	}
	return &cfg, nil
}
