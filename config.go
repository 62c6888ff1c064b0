package frameio

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration, loaded from a TOML file and
// applied to sessions through WithConfig.
//
//	temp_dir = "/var/cache/frameio"
//	max_bytes = 268435456
//
//	[prefer]
//	".bin" = "raw"
type Config struct {
	// TempDir is where materialized copies are created. Empty means the
	// system temp directory.
	TempDir string `toml:"temp_dir"`

	// MaxBytes caps how many bytes a single source may materialize.
	// Zero means the built-in default (1 GiB).
	MaxBytes int64 `toml:"max_bytes"`

	// Prefer maps file extensions to format names, overriding detection
	// for resources where the extension alone is ambiguous or wrong.
	Prefer map[string]string `toml:"prefer"`
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if c.MaxBytes < 0 {
		return nil, fmt.Errorf("load config %s: max_bytes must not be negative", path)
	}
	return &c, nil
}

// normalizePrefer rewrites preference keys to the canonical extension
// form (lowercase, leading dot) so lookups match the locator's output.
func normalizePrefer(prefer map[string]string) map[string]string {
	out := make(map[string]string, len(prefer))
	for ext, format := range prefer {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || format == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = format
	}
	return out
}
