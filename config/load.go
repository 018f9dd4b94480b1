package config

import (
	"errors"

	"github.com/vibeos/core/fat32"
	"github.com/vibeos/core/kerr"
)

// Load returns Default() unless fs has a file at ConfigPath, in which case
// that file overrides the defaults (spec §6's ambient-stack addition:
// "loaded from an embedded default and overridable from a /etc/vibeos.yaml
// FAT32 file if present"). A missing config file is not an error; a
// present-but-malformed one is.
func Load(fs *fat32.FS) (Config, error) {
	size, err := fs.FileSize(ConfigPath)
	if err != nil {
		if errors.Is(err, kerr.ErrNotFound) {
			return Default(), nil
		}
		return Config{}, err
	}

	buf := make([]byte, size)
	n, err := fs.ReadFile(ConfigPath, buf)
	if err != nil {
		return Config{}, err
	}
	return Parse(buf[:n])
}
