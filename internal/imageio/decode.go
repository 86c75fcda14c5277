package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/swdee/go-mvnclite"
)

// Black is the letterbox padding color
var Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Decode reads a PNG, JPEG, BMP, TIFF or WebP image from r and brings it to a
// square of side size using fit
func Decode(r io.Reader, size int, fit Fit) (mvnclite.RGBImage, error) {

	img, format, err := image.Decode(r)

	if err != nil {
		return mvnclite.RGBImage{}, fmt.Errorf("error decoding image: %w", err)
	}

	out, err := FitImage(img, size, fit)

	if err != nil {
		return mvnclite.RGBImage{}, fmt.Errorf("error fitting %s image: %w", format, err)
	}

	return mvnclite.FromImage(out), nil
}

// DecodeFile opens and decodes the image file at path
func DecodeFile(path string, size int, fit Fit) (mvnclite.RGBImage, error) {

	f, err := os.Open(path)

	if err != nil {
		return mvnclite.RGBImage{}, err
	}

	defer f.Close()

	img, err := Decode(f, size, fit)

	if err != nil {
		return mvnclite.RGBImage{}, fmt.Errorf("%s: %w", path, err)
	}

	return img, nil
}

// FitImage returns img brought to a square of side size.  FitNone returns img
// unchanged.
func FitImage(img image.Image, size int, fit Fit) (image.Image, error) {

	b := img.Bounds()

	if fit == FitNone || (b.Dx() == size && b.Dy() == size) {
		return img, nil
	}

	if size <= 0 {
		return nil, fmt.Errorf("invalid input size %d", size)
	}

	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))

	switch fit {
	case FitStretch:
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	case FitLetterbox:
		l := NewLetterbox(b.Dx(), b.Dy(), size, size)
		draw.Draw(dst, dst.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)
		draw.CatmullRom.Scale(dst, l.Rect(), img, b, draw.Src, nil)

	default:
		return nil, fmt.Errorf("unknown fit %s", fit)
	}

	return dst, nil
}
