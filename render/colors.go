package render

import "image/color"

var (
	// rankColors are used for the marker beside each ranked category, the top
	// ranked first
	rankColors = []color.RGBA{
		{R: 72, G: 249, B: 10, A: 255},  // #48F90A
		{R: 255, G: 178, B: 29, A: 255}, // #FFB21D
		{R: 255, G: 112, B: 31, A: 255}, // #FF701F
		{R: 0, G: 194, B: 255, A: 255},  // #00C2FF
		{R: 132, G: 56, B: 255, A: 255}, // #8438FF
		{R: 255, G: 55, B: 199, A: 255}, // #FF37C7
		{R: 44, G: 153, B: 168, A: 255}, // #2C99A8
		{R: 146, G: 204, B: 23, A: 255}, // #92CC17
	}

	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// RankColor returns the marker color for the category at rank, counting from
// zero
func RankColor(rank int) color.RGBA {
	if rank < 0 {
		rank = 0
	}
	return rankColors[rank%len(rankColors)]
}
