package pos

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FloorRenderer draws a floor graph as a PNG: edges as lines, nodes as
// labeled circles, the current position highlighted.
type FloorRenderer struct {
	Graph   *FloorGraph
	Scale   float64 // pixels per graph unit
	Padding int     // padding around the image in pixels

	edgeColor    color.RGBA
	nodeColor    color.RGBA
	currentColor color.RGBA
	labelColor   color.RGBA
}

// NewFloorRenderer creates a renderer with the default palette.
func NewFloorRenderer(g *FloorGraph) *FloorRenderer {
	return &FloorRenderer{
		Graph:        g,
		Scale:        10,
		Padding:      20,
		edgeColor:    color.RGBA{160, 160, 160, 255}, // Grey
		nodeColor:    color.RGBA{0, 0, 139, 255},     // Dark blue
		currentColor: color.RGBA{255, 0, 0, 255},     // Red
		labelColor:   color.RGBA{40, 40, 40, 255},
	}
}

// Render draws the graph. currentNodeID may be empty when no position is
// known; an unknown id is simply not highlighted.
func (r *FloorRenderer) Render(currentNodeID string) *image.RGBA {
	width := int(r.Graph.Width*r.Scale) + 2*r.Padding
	height := int(r.Graph.Height*r.Scale) + 2*r.Padding
	if width < 2*r.Padding+1 {
		width = 2*r.Padding + 1
	}
	if height < 2*r.Padding+1 {
		height = 2*r.Padding + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}

	// Edges under nodes.
	for _, e := range r.Graph.Edges {
		from, okF := r.Graph.Node(e.From)
		to, okT := r.Graph.Node(e.To)
		if !okF || !okT {
			continue
		}
		x0, y0 := r.toPixel(from.X, from.Y)
		x1, y1 := r.toPixel(to.X, to.Y)
		drawLine(img, x0, y0, x1, y1, r.edgeColor)
	}

	for i := range r.Graph.Nodes {
		n := &r.Graph.Nodes[i]
		x, y := r.toPixel(n.X, n.Y)
		c := r.nodeColor
		radius := 4
		if n.ID == currentNodeID {
			c = r.currentColor
			radius = 7
		}
		drawDot(img, x, y, radius, c)
		label := n.Label
		if label == "" {
			label = n.ID
		}
		drawNodeLabel(img, x+radius+3, y+4, label, r.labelColor)
	}

	return img
}

// WritePNG renders the graph and encodes it as PNG to w.
func (r *FloorRenderer) WritePNG(w io.Writer, currentNodeID string) error {
	img := r.Render(currentNodeID)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding floorplan PNG: %w", err)
	}
	return nil
}

// toPixel maps graph coordinates to image coordinates. Graph Y grows upward,
// image Y grows downward.
func (r *FloorRenderer) toPixel(gx, gy float64) (int, int) {
	x := r.Padding + int(math.Round(gx*r.Scale))
	y := r.Padding + int(math.Round((r.Graph.Height-gy)*r.Scale))
	return x, y
}

// drawDot draws a filled circle clipped to the image bounds.
func drawDot(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawLine draws a 1px line using Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if x0 >= 0 && x0 < img.Bounds().Max.X && y0 >= 0 && y0 < img.Bounds().Max.Y {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawNodeLabel renders text at the given baseline position.
func drawNodeLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
