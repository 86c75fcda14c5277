package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-mvnclite"
)

// Resizer letterboxes OpenCV images to a network input size
type Resizer struct {
	Letterbox
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
}

// NewResizer returns a resizer used for scaling an image to the needed
// dimensions for input tensor size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	return &Resizer{
		Letterbox: NewLetterbox(srcWidth, srcHeight, destWidth, destHeight),
		tempMat:   gocv.NewMat(),
	}
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// LetterBoxResize resizes the input image to the dimensions needed for the input
// tensor size whilst maintaining image aspect.  Color is that used for letter
// box padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.ResizeW, r.ResizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.YPad, r.DestHeight-r.ResizeH-r.YPad,
		r.XPad, r.DestWidth-r.ResizeW-r.XPad, gocv.BorderConstant, color)
}

// Load reads the image file at path with OpenCV, converts it from BGR to RGB
// and brings it to a square of side size using fit
func Load(path string, size int, fit Fit) (mvnclite.RGBImage, error) {

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()

	if img.Empty() {
		return mvnclite.RGBImage{}, fmt.Errorf("error reading image from file: %s", path)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()

	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	out, err := FitMat(rgb, size, fit)

	if err != nil {
		return mvnclite.RGBImage{}, fmt.Errorf("%s: %w", path, err)
	}

	defer out.Close()

	return FromMat(out)
}

// FitMat returns a new Mat holding src brought to a square of side size.  The
// caller must Close the result.
func FitMat(src gocv.Mat, size int, fit Fit) (gocv.Mat, error) {

	if fit == FitNone || (src.Cols() == size && src.Rows() == size) {
		return src.Clone(), nil
	}

	if size <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid input size %d", size)
	}

	dst := gocv.NewMat()

	switch fit {
	case FitStretch:
		gocv.Resize(src, &dst, image.Pt(size, size), 0, 0, gocv.InterpolationArea)

	case FitLetterbox:
		r := NewResizer(src.Cols(), src.Rows(), size, size)
		defer r.Close()
		r.LetterBoxResize(src, &dst, Black)

	default:
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("unknown fit %s", fit)
	}

	return dst, nil
}

// FromMat copies an 8 bit, 3 channel RGB Mat into an RGBImage
func FromMat(mat gocv.Mat) (mvnclite.RGBImage, error) {

	if mat.Type() != gocv.MatTypeCV8UC3 {
		return mvnclite.RGBImage{}, errors.New("expecting an 8 bit 3 channel image")
	}

	if !mat.IsContinuous() {
		return mvnclite.RGBImage{}, errors.New("expecting a continuous image")
	}

	pix, err := mat.DataPtrUint8()

	if err != nil {
		return mvnclite.RGBImage{}, err
	}

	// the data pointer is only valid while mat is, so copy it
	out := mvnclite.RGBImage{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    make([]uint8, mat.Cols()*mat.Rows()*3),
	}

	copy(out.Pix, pix)

	return out, nil
}
