package device

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/internal/errors"
)

func TestReaderDevice_ReadBytes(t *testing.T) {
	d := NewReaderDevice("R1", bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	assert.Equal(t, "R1", d.Serial())

	b, err := d.ReadBytes(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	_, err = d.ReadBytes(context.Background(), 3)
	require.Error(t, err, "only two bytes left")
	assert.Equal(t, errors.CodeDeviceError, errors.GetCode(err))
}

func TestReaderDevice_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReaderDevice("R1", bytes.NewReader([]byte{1})).ReadBytes(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0x00}, 0o644))

	d, err := ParseSpec("QWR4A003=" + path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, "QWR4A003", d.Serial())
	b, err := d.ReadBytes(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00}, b)

	for _, bad := range []string{"", "QWR4A003", "=path", "serial="} {
		_, err := ParseSpec(bad)
		assert.Error(t, err, bad)
	}
	_, err = ParseSpec("X=" + filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
