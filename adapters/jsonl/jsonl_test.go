package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/domain/core"
	"gocoherence/internal"
)

func TestParseLine_FieldAliases(t *testing.T) {
	want := time.Date(2026, 2, 15, 7, 30, 1, 500000000, time.UTC)

	read, err := ParseLine([]byte(`{"ts": "2026-02-15T07:30:01.5Z", "elapsed_ms": 87.4, "hex": "ff00"}`))
	require.NoError(t, err)
	assert.Equal(t, want, read.Timestamp)
	assert.Equal(t, []byte{0xff, 0x00}, read.Chunk)

	read, err = ParseLine([]byte(`{"timestamp": "2026-02-15T07:30:01.5Z", "data": "0F"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0f}, read.Chunk)

	read, err = ParseLine([]byte(`{"time": 1771140601.5, "bytes": "aa"}`))
	require.NoError(t, err)
	assert.Equal(t, want, read.Timestamp)
}

func TestParseLine_Malformed(t *testing.T) {
	lines := []string{
		`not json`,
		`["ts", "hex"]`,
		`{"hex": "ff"}`,
		`{"ts": "yesterday", "hex": "ff"}`,
		`{"ts": true, "hex": "ff"}`,
		`{"ts": "2026-02-15T07:30:01Z"}`,
		`{"ts": "2026-02-15T07:30:01Z", "hex": 12}`,
		`{"ts": "2026-02-15T07:30:01Z", "hex": "xyz"}`,
	}
	for _, line := range lines {
		_, err := ParseLine([]byte(line))
		assert.ErrorIs(t, err, core.ErrMalformedRecord, line)
	}
}

func TestDirectorySource_Load(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		`{"ts": "2026-02-15T07:30:01.1Z", "hex": "ff"}`,
		``,
		`{"ts": "2026-02-15T07:30:02.1Z", "hex": "00"}`,
		`{broken`,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DEV1.jsonl"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DEV2.hex"), []byte("[2026-02-15T07:30:01.1Z] ff\n"), 0o644))

	logger := internal.NewLoggerTo(&strings.Builder{}, internal.LogLevelError)
	streams, err := NewDirectorySource(dir, 0, logger).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"DEV1"}, streams.Serials())
	assert.Len(t, streams["DEV1"], 2)
}
