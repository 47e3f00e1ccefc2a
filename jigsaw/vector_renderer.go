package jigsaw

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// LayoutRenderer draws an assembly as vector graphics: one square per
// fragment, separated by a gutter, with border pixels (the ones Stitch
// discards) drawn lighter than interior pixels.
type LayoutRenderer struct {
	Assembly   *Assembly
	CellSize   float64 // Size of one fragment pixel in mm
	Gutter     float64 // Gap between fragments in cells
	Padding    float64 // Outer padding in cells
	Resolution canvas.Resolution
	Interior   color.RGBA
	Border     color.RGBA
	Outline    color.RGBA
}

// NewLayoutRenderer creates a layout renderer with default settings
func NewLayoutRenderer(a *Assembly) *LayoutRenderer {
	return &LayoutRenderer{
		Assembly:   a,
		CellSize:   1.0,
		Gutter:     1.0,
		Padding:    DefaultRenderPadding,
		Resolution: canvas.DPI(300),
		Interior:   color.RGBA{0, 0, 139, 255},
		Border:     color.RGBA{100, 149, 237, 255},
		Outline:    color.RGBA{0, 0, 0, 255},
	}
}

type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Size returns the drawing width and height in mm (the layout is square)
func (r *LayoutRenderer) Size() (float64, float64) {
	a := r.Assembly
	cells := float64(a.Side*a.TileSize) + float64(a.Side-1)*r.Gutter + 2*r.Padding
	return cells * r.CellSize, cells * r.CellSize
}

// RenderToSVG writes the layout as an SVG to the provided writer
func (r *LayoutRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.Size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the layout as a PNG to the provided writer
func (r *LayoutRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.Size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

func (r *LayoutRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	bg := canvas.DefaultStyle
	bg.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bg, canvas.Identity)

	interior := canvas.DefaultStyle
	interior.Fill = canvas.Paint{Color: r.Interior}
	interior.Stroke = canvas.Paint{Color: canvas.Transparent}

	border := interior
	border.Fill = canvas.Paint{Color: r.Border}

	outline := canvas.DefaultStyle
	outline.Fill = canvas.Paint{Color: canvas.Transparent}
	outline.Stroke = canvas.Paint{Color: r.Outline}
	outline.StrokeWidth = 0.2 * r.CellSize

	a := r.Assembly
	n := a.TileSize
	step := float64(n) + r.Gutter

	// canvas has y pointing up; row 0 is drawn at the top
	toCanvas := func(cellX, cellY float64) (float64, float64) {
		x := (r.Padding + cellX) * r.CellSize
		y := height - (r.Padding+cellY)*r.CellSize
		return x, y
	}

	for _, row := range a.Placements {
		for _, p := range row {
			ox := float64(p.Position.Col) * step
			oy := float64(p.Position.Row) * step

			for y, line := range p.Fragment.Grid {
				for x, active := range line {
					if !active {
						continue
					}
					style := interior
					if y == 0 || x == 0 || y == n-1 || x == n-1 {
						style = border
					}
					cx, cy := toCanvas(ox+float64(x), oy+float64(y)+1)
					renderer.RenderPath(canvas.Rectangle(r.CellSize, r.CellSize).Translate(cx, cy), style, canvas.Identity)
				}
			}

			cx, cy := toCanvas(ox, oy+float64(n))
			frame := canvas.Rectangle(float64(n)*r.CellSize, float64(n)*r.CellSize).Translate(cx, cy)
			renderer.RenderPath(frame, outline, canvas.Identity)
		}
	}
}
