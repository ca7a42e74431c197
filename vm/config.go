package gvm

import (
	"os"

	"github.com/naoina/toml"
)

// Config holds the tunables the CLI doesn't expose as flags. Absent a
// config file at the given path, DefaultConfig applies.
type Config struct {
	StackCapacity   int `toml:"stack_capacity"`
	GCTickThreshold int `toml:"gc_tick_threshold"`
	HeapPrealloc    int `toml:"heap_prealloc"`
}

// DefaultStackCapacity is a generous default operand stack size; most
// Grape programs need nowhere near it.
const DefaultStackCapacity = 4096

// DefaultHeapPrealloc sizes the heap's initial backing array so typical
// programs allocate zero times during startup.
const DefaultHeapPrealloc = 256

func DefaultConfig() *Config {
	return &Config{
		StackCapacity:   DefaultStackCapacity,
		GCTickThreshold: DefaultGCTickThreshold,
		HeapPrealloc:    DefaultHeapPrealloc,
	}
}

// LoadConfig reads path as a gvm.toml document, falling back to
// DefaultConfig's values for any key the file omits. A missing file is
// not an error — it just means every default applies.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, wrapIO(err, "read "+path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, newErrf(MalformedModule, "parse %s: %s", path, err)
	}
	return cfg, nil
}
