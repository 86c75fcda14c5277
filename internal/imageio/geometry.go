// Package imageio loads images from disk or a request body and brings them to
// the square input size of a network.
package imageio

import (
	"fmt"
	"image"
)

// Fit selects how an image of the wrong size is brought to the input size
type Fit int

const (
	// FitNone leaves the image as is, the Session rejects a wrong size
	FitNone Fit = iota
	// FitStretch scales both axes independently to the input size
	FitStretch
	// FitLetterbox scales whilst keeping the aspect ratio and pads the rest
	FitLetterbox
)

// String returns the flag value of the fit
func (f Fit) String() string {
	switch f {
	case FitNone:
		return "none"
	case FitStretch:
		return "stretch"
	case FitLetterbox:
		return "letterbox"
	default:
		return fmt.Sprintf("fit(%d)", int(f))
	}
}

// ParseFit parses a fit flag value
func ParseFit(s string) (Fit, error) {
	switch s {
	case "", "none":
		return FitNone, nil
	case "stretch":
		return FitStretch, nil
	case "letterbox":
		return FitLetterbox, nil
	default:
		return FitNone, fmt.Errorf("unknown fit %q, expecting none, stretch or letterbox", s)
	}
}

// Letterbox holds the scaling of a source size into a destination size that
// keeps the aspect ratio
type Letterbox struct {
	// SrcWidth and SrcHeight are the source image dimensions
	SrcWidth  int
	SrcHeight int
	// DestWidth and DestHeight are the dimensions to scale to
	DestWidth  int
	DestHeight int
	// XPad and YPad are the padding on the left and top
	XPad int
	YPad int
	// Scale is the factor applied to both axes
	Scale float32
	// ResizeW and ResizeH are the scaled image dimensions before padding
	ResizeW int
	ResizeH int
}

// NewLetterbox precalculates the scaling factors for source and destination
// dimensions
func NewLetterbox(srcWidth, srcHeight, destWidth, destHeight int) Letterbox {

	l := Letterbox{
		SrcWidth:   srcWidth,
		SrcHeight:  srcHeight,
		DestWidth:  destWidth,
		DestHeight: destHeight,
		ResizeW:    destWidth,
		ResizeH:    destHeight,
	}

	scaleW := float32(destWidth) / float32(srcWidth)
	scaleH := float32(destHeight) / float32(srcHeight)
	l.Scale = scaleH

	if scaleW < scaleH {
		l.Scale = scaleW
		l.ResizeH = int(float32(srcHeight) * l.Scale)
	} else {
		l.ResizeW = int(float32(srcWidth) * l.Scale)
	}

	l.YPad = (destHeight - l.ResizeH) / 2 // padding height / 2
	l.XPad = (destWidth - l.ResizeW) / 2  // padding width / 2

	return l
}

// Rect returns the area of the destination the scaled image occupies
func (l Letterbox) Rect() image.Rectangle {
	return image.Rect(l.XPad, l.YPad, l.XPad+l.ResizeW, l.YPad+l.ResizeH)
}
