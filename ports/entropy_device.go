package ports

import "context"

// EntropyDevicePort is a hardware random-number source
type EntropyDevicePort interface {
	Serial() string

	// ReadBytes blocks until n random bytes are available
	ReadBytes(ctx context.Context, n int) ([]byte, error)
}

// LineSinkPort receives one formatted log line per device read
type LineSinkPort interface {
	WriteLine(serial string, line string) error
}
