package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapProvider serves a fixed env map for testing.
type mapProvider struct {
	data map[string]string
	err  error
}

func (p *mapProvider) Read(...string) (map[string]string, error) {
	return p.data, p.err
}

// TestBuildStoreConfig_Defaults tests building without an environment file.
func TestBuildStoreConfig_Defaults(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&mapProvider{})

	cfg, err := handler.BuildStoreConfig("")
	require.NoError(t, err)

	assert.Equal(t, uint32(1), cfg.FormatVersion)
	assert.Equal(t, 100*time.Millisecond, cfg.TickLen)
	assert.Equal(t, uint64(5), cfg.MaxLag)
	assert.False(t, cfg.Writer)
	assert.Equal(t, 128, cfg.ReservedPageCount)
	assert.Equal(t, "./my_md_file", cfg.MetadataFilePath)
	assert.Equal(t, 4096, cfg.PageBufferSize)
	assert.Equal(t, 100, cfg.PageBufferEntryCount)
}

// TestBuildStoreConfig_Overrides tests applying environment overrides.
func TestBuildStoreConfig_Overrides(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&mapProvider{data: map[string]string{
		"SWMR_TICK_LEN_MS":       "250",
		"SWMR_MAX_LAG":           "0",
		"SWMR_MD_PAGES_RESERVED": "64",
		"SWMR_MD_FILE_PATH":      "/tmp/md",
	}})

	cfg, err := handler.BuildStoreConfig("some.env")
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.TickLen)
	assert.Equal(t, uint64(0), cfg.MaxLag)
	assert.Equal(t, 64, cfg.ReservedPageCount)
	assert.Equal(t, "/tmp/md", cfg.MetadataFilePath)
}

// TestBuildStoreConfig_InvalidOverride tests rejection of malformed values.
func TestBuildStoreConfig_InvalidOverride(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&mapProvider{data: map[string]string{
		"SWMR_MAX_LAG": "abc",
	}})

	_, err := handler.BuildStoreConfig("some.env")
	require.ErrorIs(t, err, ErrInvalidOverride)
}

// TestBuildStoreConfig_NonPositiveOverride tests rejection of zero values
// for keys that must stay positive.
func TestBuildStoreConfig_NonPositiveOverride(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&mapProvider{data: map[string]string{
		"SWMR_MD_PAGES_RESERVED": "0",
	}})

	_, err := handler.BuildStoreConfig("some.env")
	require.ErrorIs(t, err, ErrInvalidOverride)
}

// TestBuildStoreConfig_ReadFailure tests failure to read the file itself.
func TestBuildStoreConfig_ReadFailure(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&mapProvider{err: assert.AnError})

	_, err := handler.BuildStoreConfig("missing.env")
	require.ErrorIs(t, err, assert.AnError)
}
