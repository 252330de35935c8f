package acquisition

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gocoherence/adapters/hexlog"
	"gocoherence/internal"
	"gocoherence/internal/errors"
	"gocoherence/ports"
)

// Read size limits, in bytes
const (
	DefaultBytesPerRead = 1024
	MaxBytesPerRead     = 1 << 20
)

// DefaultRetryDelay is the pause after a failed device read.
const DefaultRetryDelay = 500 * time.Millisecond

// RecorderConfig controls the reader loops
type RecorderConfig struct {
	BytesPerRead int
	RetryDelay   time.Duration
}

// DefaultRecorderConfig returns 1024-byte reads with a 0.5 s retry pause
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{BytesPerRead: DefaultBytesPerRead, RetryDelay: DefaultRetryDelay}
}

// DeviceStats counts one device's activity
type DeviceStats struct {
	Serial string `json:"serial"`
	Reads  int    `json:"reads"`
	Bytes  int64  `json:"bytes"`
	Errors int    `json:"errors"`
}

// Recorder reads every device in its own goroutine and writes one hex-log line per read.
type Recorder struct {
	devices []ports.EntropyDevicePort
	sink    ports.LineSinkPort
	control *Controller
	config  RecorderConfig
	logger  *internal.Logger
	now     func() time.Time

	mu    sync.Mutex
	stats map[string]*DeviceStats
}

// NewRecorder validates the configuration and registers every device with control.
func NewRecorder(devices []ports.EntropyDevicePort, sink ports.LineSinkPort, control *Controller, config RecorderConfig, logger *internal.Logger) (*Recorder, error) {
	if len(devices) == 0 {
		return nil, errors.InvalidInput("no entropy devices to record")
	}
	if sink == nil {
		return nil, errors.InvalidInput("recorder requires a line sink")
	}
	if config.BytesPerRead <= 0 || config.BytesPerRead > MaxBytesPerRead {
		return nil, errors.ConfigInvalid(fmt.Sprintf("bytes per read must be in [1, %d], got %d", MaxBytesPerRead, config.BytesPerRead))
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if control == nil {
		control = NewController(ModeContinuous)
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	seen := make(map[string]bool, len(devices))
	stats := make(map[string]*DeviceStats, len(devices))
	for _, d := range devices {
		serial := d.Serial()
		if seen[serial] {
			return nil, errors.InvalidInput("duplicate device serial " + serial)
		}
		seen[serial] = true
		stats[serial] = &DeviceStats{Serial: serial}
		control.Register(serial)
	}

	return &Recorder{
		devices: devices,
		sink:    sink,
		control: control,
		config:  config,
		logger:  logger.With("recorder"),
		now:     time.Now,
		stats:   stats,
	}, nil
}

// Controller returns the mode state machine driving the reader loops
func (r *Recorder) Controller() *Controller { return r.control }

// Run reads until the controller is stopped or ctx is cancelled. Device read errors are
// logged and retried; a sink write failure stops every loop and is returned.
func (r *Recorder) Run(ctx context.Context) ([]DeviceStats, error) {
	r.logger.Info("recording %d devices (%d bytes/read, mode %s)", len(r.devices), r.config.BytesPerRead, r.control.State().Mode)

	g, gctx := errgroup.WithContext(ctx)
	for _, device := range r.devices {
		device := device
		g.Go(func() error { return r.record(gctx, device) })
	}
	err := g.Wait()

	stats := r.Stats()
	for _, s := range stats {
		r.logger.Info("%s stopped after %d reads (%d bytes, %d errors)", s.Serial, s.Reads, s.Bytes, s.Errors)
	}
	return stats, err
}

func (r *Recorder) record(ctx context.Context, device ports.EntropyDevicePort) error {
	serial := device.Serial()
	for {
		if err := r.control.Await(ctx, serial); err != nil {
			if stderrors.Is(err, ErrStopped) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		start := time.Now()
		chunk, err := device.ReadBytes(ctx, r.config.BytesPerRead)
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			r.logger.Warn("%v", errors.DeviceError(serial, err))
			r.update(serial, func(s *DeviceStats) { s.Errors++ })
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.config.RetryDelay):
			}
			continue
		}

		line := hexlog.FormatLine(r.now().UTC(), elapsed, chunk)
		if err := r.sink.WriteLine(serial, line); err != nil {
			return errors.Wrapf(err, "failed to record %s", serial)
		}
		r.update(serial, func(s *DeviceStats) {
			s.Reads++
			s.Bytes += int64(len(chunk))
		})
	}
}

func (r *Recorder) update(serial string, fn func(*DeviceStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.stats[serial])
}

// Stats returns per-device counters in device order
func (r *Recorder) Stats() []DeviceStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeviceStats, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *r.stats[d.Serial()])
	}
	return out
}
