package world

import "fmt"

// DefaultSize is the side length of the default grid.
const DefaultSize = 20

// Grid is a square grid of Size×Size cells centered on the origin.
// For even sizes the valid range on each axis is [-Size/2, Size/2-1].
type Grid struct {
	Size int `json:"size"`
}

// NewGrid creates a grid with the given side length.
func NewGrid(size int) Grid {
	return Grid{Size: size}
}

// Min returns the lowest valid value on either axis.
func (g Grid) Min() int {
	return -(g.Size / 2)
}

// Max returns the highest valid value on either axis.
func (g Grid) Max() int {
	return g.Min() + g.Size - 1
}

// InBounds returns true if the coordinate lies on the grid.
func (g Grid) InBounds(c Coord) bool {
	lo, hi := g.Min(), g.Max()
	return c.X >= lo && c.X <= hi && c.Z >= lo && c.Z <= hi
}

// CellCount returns the total number of cells.
func (g Grid) CellCount() int {
	return g.Size * g.Size
}

// Cells returns every coordinate in row-major order (z outer, x inner),
// the same order a renderer walks rows and columns.
func (g Grid) Cells() []Coord {
	if g.Size <= 0 {
		return nil
	}
	cells := make([]Coord, 0, g.CellCount())
	for z := g.Min(); z <= g.Max(); z++ {
		for x := g.Min(); x <= g.Max(); x++ {
			cells = append(cells, Coord{X: x, Z: z})
		}
	}
	return cells
}

// String returns a summary of the grid.
func (g Grid) String() string {
	return fmt.Sprintf("Grid(size=%d, cells=%d)", g.Size, g.CellCount())
}
