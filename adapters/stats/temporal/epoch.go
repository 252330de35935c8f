package temporal

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"gocoherence/adapters/stats/bits"
	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
	"gocoherence/domain/epoch"
)

// ============================================================================
// EPOCH ALIGNMENT LAYER
// ============================================================================
// Devices are read at independent, jittered sub-second intervals. This layer bins
// every read into a shared one-second grid so that devices become comparable
// bucket by bucket, without resampling or interpolation.
// ============================================================================

// AlignConfig controls the binning pass.
type AlignConfig struct {
	Workers int // concurrent devices; <= 0 means GOMAXPROCS
}

// AlignEpochs bins every device's reads into one-second buckets spanning the union
// of all devices' coverage.
//
// The axis starts at the floor-second of the earliest first read and ends at the
// floor-second of the latest last read. A read lands in bucket floor(ts - start);
// reads that map outside the axis are dropped. Reads sharing a bucket are summed.
func AlignEpochs(ctx context.Context, streams entropy.StreamSet, config AlignConfig) (*epoch.Alignment, error) {
	if len(streams) == 0 {
		return nil, core.ErrNoDevices
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("epoch alignment cancelled: %w", err)
	}

	axis, err := BuildAxis(streams)
	if err != nil {
		return nil, err
	}

	serials := streams.Serials()
	devices := make([]epoch.BucketTotals, len(serials))

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sem := semaphore.NewWeighted(int64(workers))

	var wg sync.WaitGroup
	for i, serial := range serials {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("epoch alignment cancelled: %w", err)
		}
		wg.Add(1)
		go func(idx int, serial string) {
			defer wg.Done()
			defer sem.Release(1)
			devices[idx] = binDevice(serial, streams[serial], axis)
		}(i, serial)
	}
	wg.Wait()

	return &epoch.Alignment{Axis: axis, Devices: devices}, nil
}

// BuildAxis computes the shared time axis. Devices without reads do not influence it.
func BuildAxis(streams entropy.StreamSet) (epoch.Axis, error) {
	var start, end time.Time
	found := false
	for _, reads := range streams {
		first, last, ok := entropy.Span(reads)
		if !ok {
			continue
		}
		if !found || first.Before(start) {
			start = first
		}
		if !found || last.After(end) {
			end = last
		}
		found = true
	}
	if !found {
		return epoch.Axis{}, core.ErrEmptyAxis
	}

	start = core.FloorSecond(start)
	end = core.FloorSecond(end)
	span, ok := core.SecondsBetween(start, end)
	if !ok {
		// Only reachable when a device's last read precedes every first read.
		return epoch.Axis{}, fmt.Errorf("%w: end %s before start %s", core.ErrEmptyAxis, end, start)
	}

	return epoch.Axis{Start: start, Length: span + 1}, nil
}

// binDevice accumulates one device's bit totals. Each goroutine writes only its own slices.
func binDevice(serial string, reads []entropy.Read, axis epoch.Axis) epoch.BucketTotals {
	totals := epoch.BucketTotals{
		Serial: serial,
		Sums:   make([]int64, axis.Length),
		Counts: make([]int64, axis.Length),
	}
	for _, r := range reads {
		idx, ok := axis.Index(r.Timestamp)
		if !ok {
			continue
		}
		totals.Sums[idx] += bits.Popcount(r.Chunk)
		totals.Counts[idx] += bits.Count(r.Chunk)
	}
	return totals
}
