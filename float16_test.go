package mvnclite

import (
	"math"
	"math/rand"
	"testing"
)

func TestFloat32ToHalfKnownValues(t *testing.T) {

	tests := []struct {
		name string
		in   float32
		want uint16
	}{
		{"zero", 0, 0x0000},
		{"negative zero", float32(math.Copysign(0, -1)), 0x8000},
		{"one", 1.0, 0x3c00},
		{"minus two", -2.0, 0xc000},
		{"one tenth", 0.1, 0x2e66},
		{"max half", 65504, 0x7bff},
		{"rounds to infinity", 65520, 0x7c00},
		{"overflow", 1e6, 0x7c00},
		{"negative overflow", -1e6, 0xfc00},
		{"smallest subnormal", float32(math.Ldexp(1, -24)), 0x0001},
		{"half smallest subnormal rounds to even", float32(math.Ldexp(1, -25)), 0x0000},
		{"infinity", float32(math.Inf(1)), 0x7c00},
	}

	dst := make([]uint16, 1)

	for _, tc := range tests {
		Float32ToHalf(dst, []float32{tc.in}, 1)

		if dst[0] != tc.want {
			t.Errorf("%s: Float32ToHalf(%g) = %#04x, expected %#04x", tc.name, tc.in, dst[0], tc.want)
		}
	}
}

func TestHalfRoundTripAllPatterns(t *testing.T) {

	src := make([]uint16, 0, 65536)

	for i := 0; i < 65536; i++ {
		h := uint16(i)

		// NaN payloads are not preserved
		if h&0x7c00 == 0x7c00 && h&0x03ff != 0 {
			continue
		}

		src = append(src, h)
	}

	floats := make([]float32, len(src))
	back := make([]uint16, len(src))

	HalfToFloat32(floats, src, len(src))
	Float32ToHalf(back, floats, len(floats))

	for i := range src {
		if back[i] != src[i] {
			t.Fatalf("pattern %#04x came back as %#04x via %g", src[i], back[i], floats[i])
		}
	}
}

func TestHalfNaN(t *testing.T) {

	dst := make([]float32, 1)
	HalfToFloat32(dst, []uint16{0x7e00}, 1)

	if !math.IsNaN(float64(dst[0])) {
		t.Errorf("expected NaN, got %g", dst[0])
	}

	half := make([]uint16, 1)
	Float32ToHalf(half, []float32{float32(math.NaN())}, 1)

	if half[0]&0x7c00 != 0x7c00 || half[0]&0x03ff == 0 {
		t.Errorf("expected a NaN pattern, got %#04x", half[0])
	}
}

func TestHalfConversionIdempotent(t *testing.T) {

	r := rand.New(rand.NewSource(42))
	n := 10000

	src := make([]float32, n)

	for i := range src {
		src[i] = float32(r.NormFloat64() * 100)
	}

	h1 := make([]uint16, n)
	f := make([]float32, n)
	h2 := make([]uint16, n)

	Float32ToHalf(h1, src, n)
	HalfToFloat32(f, h1, n)
	Float32ToHalf(h2, f, n)

	for i := range h1 {
		if h1[i] != h2[i] {
			t.Fatalf("value %g: second conversion gave %#04x, first %#04x", src[i], h2[i], h1[i])
		}

		// relative error of a normal half is at most 2^-11
		if a := math.Abs(float64(src[i])); a > 1e-4 && a < 65504 {
			if rel := math.Abs(float64(f[i]-src[i])) / a; rel > 1.0/2048 {
				t.Errorf("value %g converted to %g, relative error %g", src[i], f[i], rel)
			}
		}
	}
}

func TestConversionCount(t *testing.T) {

	dst := []uint16{0xffff, 0xffff, 0xffff}
	Float32ToHalf(dst, []float32{1, 1, 1}, 2)

	if dst[2] != 0xffff {
		t.Errorf("value beyond count was written: %#04x", dst[2])
	}

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for count larger than buffers")
		}
	}()

	HalfToFloat32(make([]float32, 1), []uint16{1, 2}, 2)
}

func BenchmarkHalfToFloat32(b *testing.B) {

	src := make([]uint16, 227*227*3)
	dst := make([]float32, len(src))

	for i := range src {
		src[i] = uint16(i)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		HalfToFloat32(dst, src, len(src))
	}
}
