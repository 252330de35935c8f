// Package bits decodes raw RNG byte chunks into bits and ±1 steps.
package bits

import (
	mathbits "math/bits"
)

// Unpack expands a chunk into one 0/1 value per bit, most significant bit first.
func Unpack(chunk []byte) []uint8 {
	out := make([]uint8, 0, len(chunk)*8)
	for _, b := range chunk {
		for shift := 7; shift >= 0; shift-- {
			out = append(out, (b>>uint(shift))&1)
		}
	}
	return out
}

// Popcount returns the number of 1-bits in chunk.
func Popcount(chunk []byte) int64 {
	var n int
	for _, b := range chunk {
		n += mathbits.OnesCount8(b)
	}
	return int64(n)
}

// Count returns the number of bits in chunk.
func Count(chunk []byte) int64 {
	return int64(len(chunk)) * 8
}

// Steps maps bits to a random-walk step sequence: 1 -> +1, 0 -> -1.
func Steps(chunk []byte) []int8 {
	bitSeq := Unpack(chunk)
	steps := make([]int8, len(bitSeq))
	for i, b := range bitSeq {
		steps[i] = int8(b)*2 - 1
	}
	return steps
}

// NetSteps is the walk displacement contributed by chunk: 2*popcount - bit count.
func NetSteps(chunk []byte) int64 {
	return 2*Popcount(chunk) - Count(chunk)
}
