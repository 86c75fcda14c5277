package mvnclite

import (
	"fmt"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// Float32ToHalf converts the first n float32 values of src into IEEE-754
// half precision bit patterns in dst.  Rounding is round to nearest even,
// values beyond the half range become infinity and tiny values become
// subnormals or zero.
func Float32ToHalf(dst []uint16, src []float32, n int) {

	checkCount(n, len(dst), len(src))

	for i, v := range src[:n] {
		dst[i] = float16.Fromfloat32(v).Bits()
	}
}

// HalfToFloat32 converts the first n half precision bit patterns of src into
// float32 values in dst.  The conversion is exact.
func HalfToFloat32(dst []float32, src []uint16, n int) {

	checkCount(n, len(dst), len(src))

	for i, v := range src[:n] {
		dst[i] = f16LookupTable[v]
	}
}

// checkCount panics if n does not fit within both buffers
func checkCount(n, dstLen, srcLen int) {
	if n < 0 || n > dstLen || n > srcLen {
		panic(fmt.Sprintf("mvnclite: conversion count %d out of range [0,%d]",
			n, min(dstLen, srcLen)))
	}
}
