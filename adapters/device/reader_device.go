package device

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gocoherence/internal/errors"
)

// ReaderDevice serves random bytes from a byte stream such as /dev/hwrng, a FIFO fed by a
// vendor tool, or a capture file.
type ReaderDevice struct {
	serial string
	mu     sync.Mutex
	r      io.Reader
	closer io.Closer
}

// NewReaderDevice wraps r. The device does not close r.
func NewReaderDevice(serial string, r io.Reader) *ReaderDevice {
	return &ReaderDevice{serial: serial, r: r}
}

// OpenPath opens path for reading as device serial.
func OpenPath(serial, path string) (*ReaderDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DeviceError(serial, err)
	}
	return &ReaderDevice{serial: serial, r: f, closer: f}, nil
}

// ParseSpec opens a SERIAL=PATH device specification.
func ParseSpec(spec string) (*ReaderDevice, error) {
	serial, path, ok := strings.Cut(spec, "=")
	serial, path = strings.TrimSpace(serial), strings.TrimSpace(path)
	if !ok || serial == "" || path == "" {
		return nil, errors.InvalidInput(fmt.Sprintf("device %q must look like SERIAL=PATH", spec))
	}
	return OpenPath(serial, path)
}

// Serial returns the device serial
func (d *ReaderDevice) Serial() string { return d.serial }

// ReadBytes reads exactly n bytes. A short stream is a device error.
func (d *ReaderDevice) ReadBytes(ctx context.Context, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, errors.DeviceError(d.serial, err)
	}
	return buf, nil
}

// Close releases the underlying file when the device owns one
func (d *ReaderDevice) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
