package bits

import (
	"gocoherence/domain/entropy"
)

// Walk accumulates the ±1 random walk of a device, one point per read.
// Each point carries the read's timestamp and the position after the read.
func Walk(reads []entropy.Read) []entropy.WalkPoint {
	points := make([]entropy.WalkPoint, len(reads))
	var pos int64
	for i, r := range reads {
		pos += NetSteps(r.Chunk)
		points[i] = entropy.WalkPoint{Timestamp: r.Timestamp, Position: pos}
	}
	return points
}

// Walks computes Walk for every device in the set.
func Walks(streams entropy.StreamSet) map[string][]entropy.WalkPoint {
	out := make(map[string][]entropy.WalkPoint, len(streams))
	for serial, reads := range streams {
		out[serial] = Walk(reads)
	}
	return out
}

// Downsample keeps every k-th point, k = max(1, len/maxPoints), so a renderer never
// receives much more than maxPoints points. maxPoints <= 0 disables downsampling.
func Downsample(points []entropy.WalkPoint, maxPoints int) []entropy.WalkPoint {
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}
	step := len(points) / maxPoints
	if step < 1 {
		step = 1
	}
	out := make([]entropy.WalkPoint, 0, len(points)/step+1)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	return out
}
