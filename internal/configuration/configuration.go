// Package configuration builds the immutable SWMR session configuration,
// starting from the defaults of the conformance scenario and applying
// optional overrides from a Unix-type environment file.
package configuration

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tickloom/swmread/internal/storefile"
)

// Environment file keys recognized as overrides.
const (
	keyTickLenMS      = "SWMR_TICK_LEN_MS"
	keyMaxLag         = "SWMR_MAX_LAG"
	keyPagesReserved  = "SWMR_MD_PAGES_RESERVED"
	keyMDFilePath     = "SWMR_MD_FILE_PATH"
	keyPageBufSize    = "SWMR_PAGE_BUF_SIZE"
	keyPageBufEntries = "SWMR_PAGE_BUF_ENTRIES"
)

type configProvider interface {
	Read(filenames ...string) (map[string]string, error)
}

// Handler is the principal implementation for building session
// configurations.
type Handler struct {
	provider configProvider
}

// NewHandler returns a pointer to a new configuration [Handler].
func NewHandler(provider configProvider) *Handler {
	return &Handler{
		provider: provider,
	}
}

// Defaults returns the reader-side default configuration of the conformance
// scenario: one 100 ms tick, a lag bound of five ticks and 128 reserved
// metadata pages over 4096-byte page buffers.
func Defaults() storefile.Config {
	return storefile.Config{
		FormatVersion:        1,
		TickLen:              100 * time.Millisecond,
		MaxLag:               5,
		Writer:               false,
		ReservedPageCount:    128,
		MetadataFilePath:     "./my_md_file",
		PageBufferSize:       4096,
		PageBufferEntryCount: 100,
	}
}

// BuildStoreConfig returns the session configuration: the defaults, with any
// overrides read from the given environment file applied and the combined
// result validated. An empty envFile skips the override step entirely.
func (h *Handler) BuildStoreConfig(envFile string) (storefile.Config, error) {
	cfg := Defaults()

	if envFile != "" {
		envMap, err := h.provider.Read(envFile)
		if err != nil {
			return storefile.Config{}, fmt.Errorf("(config) read %q: %w", envFile, err)
		}

		if err := applyOverrides(&cfg, envMap); err != nil {
			return storefile.Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return storefile.Config{}, fmt.Errorf("(config) %w", err)
	}

	return cfg, nil
}

// applyOverrides applies recognized environment keys onto the configuration.
func applyOverrides(cfg *storefile.Config, envMap map[string]string) error {
	if value, exists := envMap[keyTickLenMS]; exists {
		ms, err := parsePositiveInt(keyTickLenMS, value)
		if err != nil {
			return err
		}
		cfg.TickLen = time.Duration(ms) * time.Millisecond
	}

	if value, exists := envMap[keyMaxLag]; exists {
		lag, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("(config) %w: %s=%q", ErrInvalidOverride, keyMaxLag, value)
		}
		cfg.MaxLag = lag
	}

	if value, exists := envMap[keyPagesReserved]; exists {
		pages, err := parsePositiveInt(keyPagesReserved, value)
		if err != nil {
			return err
		}
		cfg.ReservedPageCount = pages
	}

	if value, exists := envMap[keyMDFilePath]; exists {
		cfg.MetadataFilePath = value
	}

	if value, exists := envMap[keyPageBufSize]; exists {
		size, err := parsePositiveInt(keyPageBufSize, value)
		if err != nil {
			return err
		}
		cfg.PageBufferSize = size
	}

	if value, exists := envMap[keyPageBufEntries]; exists {
		entries, err := parsePositiveInt(keyPageBufEntries, value)
		if err != nil {
			return err
		}
		cfg.PageBufferEntryCount = entries
	}

	return nil
}

// parsePositiveInt parses an override value that must be a positive integer.
func parsePositiveInt(key, value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("(config) %w: %s=%q", ErrInvalidOverride, key, value)
	}

	return parsed, nil
}
