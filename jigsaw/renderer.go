package jigsaw

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImagePalette defines the colors used for raster output
type ImagePalette struct {
	Background color.RGBA
	Inactive   color.RGBA
	Active     color.RGBA
	Pattern    color.RGBA
	Text       color.RGBA
}

// DefaultPalette returns a sea-blue palette with pattern hits in orange
func DefaultPalette() ImagePalette {
	return ImagePalette{
		Background: color.RGBA{255, 255, 255, 255},
		Inactive:   color.RGBA{176, 224, 230, 255}, // Powder blue
		Active:     color.RGBA{0, 0, 139, 255},     // Dark blue
		Pattern:    color.RGBA{255, 140, 0, 255},   // Dark orange
		Text:       color.RGBA{0, 0, 0, 255},
	}
}

// legendHeight is the banner height reserved for text above the image
const legendHeight = 20

// ImageRenderer draws a solved puzzle's stitched image
type ImageRenderer struct {
	Solution *Solution
	Palette  ImagePalette
	Scale    int  // Output pixels per image pixel
	Legend   bool // Draw the checksum/roughness banner
}

// NewImageRenderer creates a renderer with default settings
func NewImageRenderer(sol *Solution) *ImageRenderer {
	return &ImageRenderer{
		Solution: sol,
		Palette:  DefaultPalette(),
		Scale:    DefaultRenderScale,
		Legend:   true,
	}
}

// Render draws the image in the orientation where the pattern was found,
// highlighting every pixel covered by a match
func (r *ImageRenderer) Render() *image.RGBA {
	scale := r.Scale
	if scale <= 0 {
		scale = 1
	}

	img := r.Solution.OrientedImage()
	var cov Grid
	if o := r.Solution.Scan.Orientation; o != NoOrientation {
		cov = Coverage(img, r.Solution.Pattern, r.Solution.Scan.MatchesIn(o))
	}

	top := 0
	if r.Legend {
		top = legendHeight
	}
	width := max(img.Cols()*scale, 1)
	height := img.Rows()*scale + top

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	fillRect(out, out.Bounds(), r.Palette.Background)

	for y, row := range img {
		for x, active := range row {
			c := r.Palette.Inactive
			switch {
			case cov != nil && cov[y][x]:
				c = r.Palette.Pattern
			case active:
				c = r.Palette.Active
			}
			fillRect(out, image.Rect(x*scale, top+y*scale, (x+1)*scale, top+(y+1)*scale), c)
		}
	}

	if r.Legend {
		res := r.Solution.Result
		drawText(out, 4, 14, fmt.Sprintf("checksum %d  roughness %d  matches %d", res.Checksum, res.Roughness, res.Occurrences), r.Palette.Text)
	}

	return out
}

// SavePNG renders and writes the image to path
func (r *ImageRenderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, r.Render()); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

func fillRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	rect = rect.Intersect(img.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawText renders text onto an image at the specified baseline position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
