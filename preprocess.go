package mvnclite

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// RGBImage is a decoded 8 bit RGB image stored row major with the channels
// interleaved, ie: R,G,B,R,G,B...
type RGBImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// FromImage converts any decoded image into an RGBImage, dropping the alpha
// channel
func FromImage(img image.Image) RGBImage {

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)

	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
		bounds = rgba.Bounds()
	}

	w, h := bounds.Dx(), bounds.Dy()
	out := RGBImage{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*3),
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := rgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			dst := (y*w + x) * 3
			copy(out.Pix[dst:dst+3], rgba.Pix[src:src+3])
		}
	}

	return out
}

// NormalizationProfile holds the per channel normalisation applied to raw
// pixel values before quantisation.  Mean is on the 0-255 scale and InvScale
// is 1/(255*stddev).
type NormalizationProfile struct {
	Mean     [3]float32
	InvScale [3]float32
}

// NewNormalizationProfile builds a profile from the mean and standard
// deviation as stored in a network's stat.txt, which are on the 0-1 scale
func NewNormalizationProfile(mean, stddev [3]float32) (NormalizationProfile, error) {

	var p NormalizationProfile

	for c := 0; c < 3; c++ {
		if stddev[c] <= 0 {
			return NormalizationProfile{}, fmt.Errorf("channel %d stddev %f must be positive", c, stddev[c])
		}

		p.Mean[c] = 255 * mean[c]
		p.InvScale[c] = 1 / (255 * stddev[c])
	}

	return p, nil
}

// Normalize writes (pix[i] - Mean[c]) * InvScale[c] for every channel value
// of the interleaved RGB pixels into dst, preserving layout.  dst must hold
// at least len(pix) values.
func Normalize(dst []float32, pix []uint8, p NormalizationProfile) {

	n := len(pix) - len(pix)%3
	dst = dst[:n]

	for i := 0; i < n; i += 3 {
		dst[i] = (float32(pix[i]) - p.Mean[0]) * p.InvScale[0]
		dst[i+1] = (float32(pix[i+1]) - p.Mean[1]) * p.InvScale[1]
		dst[i+2] = (float32(pix[i+2]) - p.Mean[2]) * p.InvScale[2]
	}
}

// tensorBuffers are the conversion buffers of a Session, sized for a square
// input of side x side x 3
type tensorBuffers struct {
	// side is the tensor side the buffers were allocated for, zero when
	// nothing is allocated
	side int
	// staging holds the normalised float32 values
	staging []float32
	// tensor holds the half precision values sent to the device
	tensor []uint16
}

// ensure reallocates the buffers only when side differs from the allocated
// side.  It reports whether an allocation happened.
func (b *tensorBuffers) ensure(side int) bool {

	if b.side == side && b.tensor != nil {
		return false
	}

	n := side * side * 3
	b.staging = make([]float32, n)
	b.tensor = make([]uint16, n)
	b.side = side

	return true
}

// release drops the buffers
func (b *tensorBuffers) release() {
	*b = tensorBuffers{}
}

// ConvertImage normalises and quantises img into the half precision tensor
// expected by the loaded network.  The image must already be exactly
// InputSize() pixels square, it is never resized or cropped.  The returned
// slice is owned by the Session and is overwritten by the next call.
func (s *Session) ConvertImage(img RGBImage) ([]uint16, error) {

	const op = "ConvertImage"

	if s.graph == nil {
		return nil, errorf(op, NotAllowedThisTime, "", "no network loaded")
	}

	side := s.inputSize

	if img.Width != side || img.Height != side {
		return nil, errorf(op, InvalidInput, s.networkPath,
			"invalid input size: given image is %dx%d, expecting %dx%d",
			img.Width, img.Height, side, side)
	}

	if len(img.Pix) != side*side*3 {
		return nil, errorf(op, InvalidInput, s.networkPath,
			"invalid input size: pixel buffer holds %d bytes, expecting %d",
			len(img.Pix), side*side*3)
	}

	if s.bufs.ensure(side) {
		s.log.Debug("allocated conversion buffers", "op", op, "side", side)
	}

	Normalize(s.bufs.staging, img.Pix, s.profile)
	Float32ToHalf(s.bufs.tensor, s.bufs.staging, len(s.bufs.staging))

	return s.bufs.tensor, nil
}
