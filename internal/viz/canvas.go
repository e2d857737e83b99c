package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel (x, y). The canvas is Width*2 by Height*4
// sub-pixels.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Clear resets the canvas
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// ToPixel maps the unit square [-1, 1]² onto the canvas, y pointing up.
func (c *Canvas) ToPixel(u, v float64) (int, int) {
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	x := int(math.Round((u + 1) / 2 * w))
	y := int(math.Round((1 - v) / 2 * h))
	return x, y
}

// Point lights the sub-pixel nearest (u, v) in unit coordinates.
func (c *Canvas) Point(u, v float64) {
	c.Set(c.ToPixel(u, v))
}

// Segment draws from (u0, v0) to (u1, v1) in unit coordinates.
func (c *Canvas) Segment(u0, v0, u1, v1 float64) {
	x0, y0 := c.ToPixel(u0, v0)
	x1, y1 := c.ToPixel(u1, v1)
	c.DrawLine(x0, y0, x1, y1)
}

// UnitCircle outlines the circle of radius one.
func (c *Canvas) UnitCircle() {
	n := 4 * (c.Width + c.Height)
	for i := range n {
		phi := 2 * math.Pi * float64(i) / float64(n)
		c.Point(math.Cos(phi), math.Sin(phi))
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
