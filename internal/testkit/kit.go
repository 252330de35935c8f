// Package testkit provides deterministic synthetic entropy streams and fake devices for tests.
package testkit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gocoherence/domain/entropy"
)

// Epoch is the fixed start instant used by generated streams.
var Epoch = time.Date(2026, 2, 15, 7, 30, 0, 0, time.UTC)

// TestKit generates reproducible device streams from a seed.
type TestKit struct {
	rng *rand.Rand
}

// NewTestKit creates a kit seeded for reproducible output.
func NewTestKit(seed int64) *TestKit {
	return &TestKit{rng: rand.New(rand.NewSource(seed))}
}

// ChunkWithOnes returns an nBytes chunk containing exactly ones 1-bits, packed from the front.
func ChunkWithOnes(nBytes, ones int) []byte {
	if ones > nBytes*8 {
		ones = nBytes * 8
	}
	chunk := make([]byte, nBytes)
	for i := 0; i < ones; i++ {
		chunk[i/8] |= 0x80 >> uint(i%8)
	}
	return chunk
}

// ConstantStream emits one read per second for seconds seconds, offset into each second
// by offset, every read carrying chunk.
func ConstantStream(start time.Time, seconds int, offset time.Duration, chunk []byte) []entropy.Read {
	reads := make([]entropy.Read, seconds)
	for i := range reads {
		reads[i] = entropy.Read{
			Timestamp: start.Add(time.Duration(i)*time.Second + offset),
			Chunk:     chunk,
		}
	}
	return reads
}

// RandomStream emits readsPerSecond reads of bytesPerRead uniform random bytes for every
// second, jittering timestamps within the second.
func (k *TestKit) RandomStream(start time.Time, seconds, readsPerSecond, bytesPerRead int) []entropy.Read {
	reads := make([]entropy.Read, 0, seconds*readsPerSecond)
	slot := time.Second / time.Duration(readsPerSecond)
	for s := 0; s < seconds; s++ {
		for r := 0; r < readsPerSecond; r++ {
			chunk := make([]byte, bytesPerRead)
			k.rng.Read(chunk)
			jitter := time.Duration(k.rng.Int63n(int64(slot)))
			reads = append(reads, entropy.Read{
				Timestamp: start.Add(time.Duration(s)*time.Second + time.Duration(r)*slot + jitter),
				Chunk:     chunk,
			})
		}
	}
	return reads
}

// RandomStreams builds a StreamSet of n devices named DEV0..DEVn-1.
func (k *TestKit) RandomStreams(devices, seconds, readsPerSecond, bytesPerRead int) entropy.StreamSet {
	streams := make(entropy.StreamSet, devices)
	for d := 0; d < devices; d++ {
		streams[fmt.Sprintf("DEV%d", d)] = k.RandomStream(Epoch, seconds, readsPerSecond, bytesPerRead)
	}
	return streams
}

// FakeDevice is an in-memory entropy device that returns deterministic bytes.
type FakeDevice struct {
	serial string
	mu     sync.Mutex
	rng    *rand.Rand
	reads  int
	failAt int // read number that fails once; 0 disables
}

// NewFakeDevice creates a device with its own seeded generator.
func NewFakeDevice(serial string, seed int64) *FakeDevice {
	return &FakeDevice{serial: serial, rng: rand.New(rand.NewSource(seed))}
}

// FailOnRead makes read number n (1-based) return an error.
func (d *FakeDevice) FailOnRead(n int) *FakeDevice {
	d.failAt = n
	return d
}

// Serial returns the device serial.
func (d *FakeDevice) Serial() string { return d.serial }

// ReadBytes fills n bytes.
func (d *FakeDevice) ReadBytes(ctx context.Context, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.failAt > 0 && d.reads == d.failAt {
		return nil, fmt.Errorf("device %s: simulated read failure", d.serial)
	}
	buf := make([]byte, n)
	d.rng.Read(buf)
	return buf, nil
}

// Reads returns how many reads were attempted.
func (d *FakeDevice) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// StaticSource is a stream source over an in-memory set.
type StaticSource struct {
	Name    string
	Streams entropy.StreamSet
	Err     error
}

// Load returns the configured streams or error.
func (s *StaticSource) Load(ctx context.Context) (entropy.StreamSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Streams, nil
}

// Describe returns Name.
func (s *StaticSource) Describe() string { return s.Name }
