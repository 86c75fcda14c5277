// Package render draws inference results onto images using GoCV
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-mvnclite"
	"gocv.io/x/gocv"
)

// Corner is the image corner the label panel is anchored to
type Corner int

const (
	TopLeft Corner = iota
	TopRight
)

// PanelStyle defines how the ranked categories are drawn
type PanelStyle struct {
	Face      gocv.HersheyFont
	Scale     float64
	Text      color.RGBA
	Thickness int
	// Background fills the panel behind the text
	Background color.RGBA
	// Pad is the space around the panel contents and between marker and text
	Pad int
	// LineGap is the extra space below each line
	LineGap int
	Corner  Corner
}

// DefaultPanelStyle returns a small white on black panel in the top left
// corner
func DefaultPanelStyle() PanelStyle {
	return PanelStyle{
		Face:       gocv.FontHersheySimplex,
		Scale:      0.5,
		Text:       White,
		Thickness:  1,
		Background: Black,
		Pad:        4,
		LineGap:    2,
		Corner:     TopLeft,
	}
}

// Classification renders the ranked categories of res as a panel of text
// lines in a top corner of img, one line per category with a colored marker
// beside it.  The area covered by the panel is returned, empty when res holds
// no categories.
func Classification(img *gocv.Mat, res mvnclite.ClassificationResult, style PanelStyle) image.Rectangle {

	if len(res) == 0 {
		return image.Rectangle{}
	}

	texts := make([]string, len(res))
	textW, textH := 0, 0

	for i, p := range res {
		texts[i] = fmt.Sprintf("%s %.2f%%", p.Label, p.Probability*100)
		size := gocv.GetTextSize(texts[i], style.Face, style.Scale, style.Thickness)
		textW = max(textW, size.X)
		textH = max(textH, size.Y)
	}

	// marker is a square the height of the text
	marker := textH
	lineH := textH + style.Pad + style.LineGap
	panelW := style.Pad + marker + style.Pad + textW + style.Pad
	panelH := style.Pad + lineH*len(res)

	x0 := 0

	if style.Corner == TopRight {
		x0 = max(img.Cols()-panelW, 0)
	}

	panel := image.Rect(x0, 0, x0+panelW, panelH)
	gocv.Rectangle(img, panel, style.Background, -1)

	for i, text := range texts {
		top := style.Pad + i*lineH

		mRect := image.Rect(x0+style.Pad, top, x0+style.Pad+marker, top+marker)
		gocv.Rectangle(img, mRect, RankColor(i), -1)

		// text origin is the left end of the baseline
		pos := image.Pt(x0+style.Pad*2+marker, top+textH)
		gocv.PutTextWithParams(img, text, pos, style.Face, style.Scale, style.Text,
			style.Thickness, gocv.LineAA, false)
	}

	return panel
}

// AnnotateFile reads the image at src, renders res onto it and writes it to
// dst, the output format follows the dst file extension
func AnnotateFile(src, dst string, res mvnclite.ClassificationResult, style PanelStyle) error {

	img := gocv.IMRead(src, gocv.IMReadColor)

	if img.Empty() {
		return fmt.Errorf("error reading image file: %s", src)
	}

	defer img.Close()

	Classification(&img, res, style)

	if ok := gocv.IMWrite(dst, img); !ok {
		return fmt.Errorf("error writing annotated image: %s", dst)
	}

	return nil
}
