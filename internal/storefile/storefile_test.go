package storefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickloom/swmread/internal/pagecache"
	"github.com/tickloom/swmread/internal/schema"
	"github.com/tickloom/swmread/internal/tick"
	"github.com/tickloom/swmread/internal/trap"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	return Config{
		FormatVersion:        1,
		TickLen:              100 * time.Millisecond,
		MaxLag:               5,
		ReservedPageCount:    128,
		MetadataFilePath:     filepath.Join(t.TempDir(), "my_md_file"),
		PageBufferSize:       4096,
		PageBufferEntryCount: 100,
	}
}

// asWriter returns the configuration with the writer role selected.
func asWriter(cfg Config) Config {
	cfg.Writer = true

	return cfg
}

// testStore creates a fresh store file with two datasets and returns the data
// file path together with the configuration.
func testStore(t *testing.T, cfg Config) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vlstr.store")
	err := CreateStoreFile(path, cfg, []string{"dset-0", "dset-1"}, &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)

	return path
}

// failingStatOS wraps the real provider but fails every stat call.
type failingStatOS struct {
	schema.OS
}

func (*failingStatOS) Stat(string) (os.FileInfo, error) {
	return nil, os.ErrPermission
}

// TestConfigValidate_Errors tests rejection of invariant violations.
func TestConfigValidate_Errors(t *testing.T) {
	t.Parallel()

	valid := Config{
		FormatVersion:        1,
		TickLen:              time.Millisecond,
		ReservedPageCount:    1,
		MetadataFilePath:     "md",
		PageBufferSize:       4096,
		PageBufferEntryCount: 1,
	}
	require.NoError(t, valid.Validate())

	broken := valid
	broken.FormatVersion = 2
	require.ErrorIs(t, broken.Validate(), ErrInvalidConfig)

	broken = valid
	broken.TickLen = 0
	require.ErrorIs(t, broken.Validate(), ErrInvalidConfig)

	broken = valid
	broken.ReservedPageCount = 0
	require.ErrorIs(t, broken.Validate(), ErrInvalidConfig)

	broken = valid
	broken.MetadataFilePath = ""
	require.ErrorIs(t, broken.Validate(), ErrInvalidConfig)

	broken = valid
	broken.PageBufferEntryCount = 0
	require.ErrorIs(t, broken.Validate(), ErrInvalidConfig)
}

// TestReadRoundtrip_Success tests create, mutate, open and read of a dataset.
func TestReadRoundtrip_Success(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := testStore(t, cfg)
	clock := tick.NewClock()

	wf, err := Open(path, ReadWrite, asWriter(cfg), clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer wf.Close()

	writer, err := NewWriter(wf, clock)
	require.NoError(t, err)
	assert.Equal(t, []string{"dset-0", "dset-1"}, writer.Datasets())

	require.NoError(t, writer.Mutate(0, StepCreate))

	rf, err := Open(path, ReadOnly, cfg, clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer rf.Close()

	obj, err := rf.OpenObject(context.Background(), "dset-0")
	require.NoError(t, err)
	assert.True(t, obj.Type.Variable)
	assert.True(t, obj.Space.Scalar)

	buf := NewContentBuffer(96)
	require.NoError(t, obj.Read(context.Background(), buf))
	assert.Equal(t, "content 0 seq 1 short", string(buf.Bytes()))

	require.NoError(t, obj.Close())
}

// TestOpenObject_Unknown tests resolution failure for a missing dataset.
func TestOpenObject_Unknown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := testStore(t, cfg)
	clock := tick.NewClock()

	rf, err := Open(path, ReadOnly, cfg, clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.OpenObject(context.Background(), "dset-9")
	require.ErrorIs(t, err, ErrNoSuchObject)
}

// TestRead_RefreshAfterLag tests that a reader observes new content once its
// cached record page exceeds the lag bound.
func TestRead_RefreshAfterLag(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxLag = 2
	path := testStore(t, cfg)
	clock := tick.NewClock()

	wf, err := Open(path, ReadWrite, asWriter(cfg), clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer wf.Close()

	writer, err := NewWriter(wf, clock)
	require.NoError(t, err)
	require.NoError(t, writer.Mutate(0, StepCreate))

	rf, err := Open(path, ReadOnly, cfg, clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer rf.Close()

	obj, err := rf.OpenObject(context.Background(), "dset-0")
	require.NoError(t, err)

	buf := NewContentBuffer(96)
	require.NoError(t, obj.Read(context.Background(), buf))
	assert.Equal(t, "content 0 seq 1 short", string(buf.Bytes()))

	require.NoError(t, writer.Mutate(0, StepLengthen))

	// Still within the lag bound: the cached record keeps serving.
	require.NoError(t, obj.Read(context.Background(), buf))
	assert.Equal(t, "content 0 seq 1 short", string(buf.Bytes()))

	for i := 0; i < 3; i++ {
		clock.Advance()
	}

	require.NoError(t, obj.Read(context.Background(), buf))
	assert.Equal(t, "content 0 seq 2 long long long long long long long long", string(buf.Bytes()))
}

// TestRead_ShrinkTripsBoundaryTrap tests that a stale record left behind by a
// heap compaction is intercepted by the boundary trap instead of faulting.
func TestRead_ShrinkTripsBoundaryTrap(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxLag = 1 << 20 // never refresh: force the stale reference
	path := testStore(t, cfg)
	clock := tick.NewClock()

	wf, err := Open(path, ReadWrite, asWriter(cfg), clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer wf.Close()

	writer, err := NewWriter(wf, clock)
	require.NoError(t, err)
	require.NoError(t, writer.Mutate(0, StepCreate))
	require.NoError(t, writer.Mutate(0, StepLengthen))

	faultTrap := trap.New()
	rf, err := Open(path, ReadOnly, cfg, clock, faultTrap, &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer rf.Close()

	obj, err := rf.OpenObject(context.Background(), "dset-0")
	require.NoError(t, err)

	buf := NewContentBuffer(96)
	require.NoError(t, obj.Read(context.Background(), buf))

	// The compaction moves the live fragment down and truncates the heap,
	// leaving the reader's cached record pointing beyond the new end.
	require.NoError(t, writer.Mutate(0, StepShorten))

	err = obj.Read(context.Background(), buf)
	require.ErrorIs(t, err, pagecache.ErrOutOfBounds)
	assert.True(t, faultTrap.Triggered())
}

// TestRead_DeletedDatasetEmpty tests that a deleted dataset reads back empty
// once the record refreshes.
func TestRead_DeletedDatasetEmpty(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxLag = 0 // strict mode: always read the latest record
	path := testStore(t, cfg)
	clock := tick.NewClock()

	wf, err := Open(path, ReadWrite, asWriter(cfg), clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer wf.Close()

	writer, err := NewWriter(wf, clock)
	require.NoError(t, err)
	require.NoError(t, writer.Mutate(0, StepCreate))
	require.NoError(t, writer.Mutate(0, StepDelete))

	rf, err := Open(path, ReadOnly, cfg, clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer rf.Close()

	obj, err := rf.OpenObject(context.Background(), "dset-0")
	require.NoError(t, err)

	buf := NewContentBuffer(96)
	require.NoError(t, obj.Read(context.Background(), buf))
	assert.Equal(t, 0, buf.Len())
}

// TestContentBuffer_TooSmall tests the capacity check of the content buffer.
func TestContentBuffer_TooSmall(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := testStore(t, cfg)
	clock := tick.NewClock()

	wf, err := Open(path, ReadWrite, asWriter(cfg), clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer wf.Close()

	writer, err := NewWriter(wf, clock)
	require.NoError(t, err)
	require.NoError(t, writer.Mutate(0, StepLengthen))

	rf, err := Open(path, ReadOnly, cfg, clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer rf.Close()

	obj, err := rf.OpenObject(context.Background(), "dset-0")
	require.NoError(t, err)

	buf := NewContentBuffer(8)
	err = obj.Read(context.Background(), buf)
	require.ErrorIs(t, err, ErrBufferTooSmall)
}

// TestOpen_ReaderRoleReadWrite tests that read-write access is refused when
// the configuration does not select the writer role.
func TestOpen_ReaderRoleReadWrite(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := testStore(t, cfg)
	clock := tick.NewClock()

	_, err := Open(path, ReadWrite, cfg, clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

// TestHeapBounds_ProviderError tests that a failing stat call surfaces from
// the heap bounds query.
func TestHeapBounds_ProviderError(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := testStore(t, cfg)
	clock := tick.NewClock()

	f, err := Open(path, ReadOnly, cfg, clock, trap.New(), &failingStatOS{}, &schema.Unix{})
	require.NoError(t, err)
	defer f.Close()

	_, err = f.HeapBounds()
	require.ErrorIs(t, err, os.ErrPermission)
}

// TestObject_CloseTwice tests that closing an object handle twice is an error.
func TestObject_CloseTwice(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	path := testStore(t, cfg)
	clock := tick.NewClock()

	f, err := Open(path, ReadOnly, cfg, clock, trap.New(), &schema.OS{}, &schema.Unix{})
	require.NoError(t, err)
	defer f.Close()

	obj, err := f.OpenObject(context.Background(), "dset-0")
	require.NoError(t, err)

	require.NoError(t, obj.Close())
	require.ErrorIs(t, obj.Close(), ErrObjectClosed)
}
