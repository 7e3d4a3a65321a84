// Package world provides the square grid the city is built on.
// Cells are addressed by (x, z) pairs centered on the origin.
package world

import "fmt"

// Coord identifies one cell on the grid.
type Coord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// String returns the coordinate as "(x,z)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}
