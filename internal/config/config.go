package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// ChecksumSize is the number of trailing payload bytes holding the XOR-fold
// checksum. Payloads must be strictly larger than this.
const ChecksumSize = 128

// Output format identifiers.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
)

// Config holds one benchmark invocation's settings. Zero optional fields
// (LoopSize, ChunkBytes, Threads) mean "unset": probes substitute their own
// defaults.
type Config struct {
	Iterations   int    `envconfig:"SYSPERF_ITERATIONS" toml:"iterations" default:"10"`
	Warmups      int    `envconfig:"SYSPERF_WARMUPS" toml:"warmups" default:"3"`
	LoopSize     uint64 `envconfig:"SYSPERF_LOOP_SIZE" toml:"loop_size" default:"0"`
	PayloadBytes uint64 `envconfig:"SYSPERF_PAYLOAD_BYTES" toml:"payload_bytes" default:"1073741824"`
	ChunkBytes   uint64 `envconfig:"SYSPERF_CHUNK_BYTES" toml:"chunk_bytes" default:"0"`
	Threads      uint64 `envconfig:"SYSPERF_THREADS" toml:"threads" default:"0"`
	LogLevel     string `envconfig:"SYSPERF_LOG_LEVEL" toml:"log_level" default:"warning"`
	OutputFormat string `envconfig:"SYSPERF_OUTPUT_FORMAT" toml:"output_format" default:"human"`
}

// DefaultChunkBytes is applied to streaming and shared-buffer probes when
// --chunk-bytes is unset.
const DefaultChunkBytes = 1 << 20

// Load resolves configuration from environment variables over built-in
// defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Iterations:   10,
		Warmups:      3,
		PayloadBytes: 1 << 30,
		LogLevel:     "warning",
		OutputFormat: FormatHuman,
	}
}

// LoadFile overlays settings from a TOML file onto cfg. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Requirements describes which options a probe consumes; the dispatcher passes
// it to Validate so option/probe incompatibilities are rejected up front.
type Requirements struct {
	Bandwidth  bool // payload applies
	UsesChunk  bool // streaming or shared-buffer transport
	UsesThread bool // multi-threaded memcpy
}

// Validate checks the configuration against a probe's requirements. A non-nil
// error means usage exit code 1, before any probe runs.
func (c *Config) Validate(req Requirements) error {
	if c.Iterations < 3 {
		return fmt.Errorf("iterations must be at least 3, got: %d", c.Iterations)
	}
	if c.Warmups < 0 {
		return fmt.Errorf("warmups must be non-negative, got: %d", c.Warmups)
	}
	if c.OutputFormat != FormatHuman && c.OutputFormat != FormatJSON {
		return fmt.Errorf("output format must be %q or %q, got: %q", FormatHuman, FormatJSON, c.OutputFormat)
	}
	if !req.UsesThread && c.Threads != 0 {
		return fmt.Errorf("threads option is only applicable to the multi-threaded memcpy probe")
	}
	if req.Bandwidth {
		if c.PayloadBytes <= ChecksumSize {
			return fmt.Errorf("payload bytes must be larger than the checksum size (%d), got: %d", ChecksumSize, c.PayloadBytes)
		}
		if !req.UsesChunk && c.ChunkBytes != 0 {
			return fmt.Errorf("chunk bytes option is not applicable to memcpy probes")
		}
		if req.UsesChunk {
			chunk := c.EffectiveChunkBytes()
			if chunk == 0 {
				return fmt.Errorf("chunk bytes must be greater than 0")
			}
			if chunk > c.PayloadBytes {
				return fmt.Errorf("chunk bytes (%d) cannot be larger than payload bytes (%d)", chunk, c.PayloadBytes)
			}
		}
	}
	return nil
}

// EffectiveChunkBytes returns the chunk size with the default applied.
func (c *Config) EffectiveChunkBytes() uint64 {
	if c.ChunkBytes == 0 {
		return DefaultChunkBytes
	}
	return c.ChunkBytes
}

// ParseSize parses a byte-size argument: a plain integer or an integer with
// an IEC suffix (K, M, G or KiB, MiB, GiB).
func ParseSize(s string) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := uint64(1)
	upper := strings.ToUpper(trimmed)
	for suffix, m := range map[string]uint64{
		"KIB": 1 << 10, "MIB": 1 << 20, "GIB": 1 << 30,
		"K": 1 << 10, "M": 1 << 20, "G": 1 << 30,
	} {
		if strings.HasSuffix(upper, suffix) {
			multiplier = m
			trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)])
			break
		}
	}

	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return value * multiplier, nil
}
