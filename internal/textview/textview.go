// Package textview renders a city snapshot for terminals.
package textview

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/citybuilder/internal/client"
)

// Glyph returns the map character for a building kind.
func Glyph(kind string) byte {
	switch kind {
	case "road":
		return '='
	case "":
		return '.'
	}
	if c := kind[0]; c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return '?'
}

// Grid draws the map with z rows top to bottom and x columns left to right,
// framed by coordinate labels on the left and top.
func Grid(v *client.StateView) string {
	n := v.GridSize
	if n <= 0 {
		return ""
	}
	lo := -(n / 2)
	hi := lo + n - 1

	cells := make(map[client.Coord]string, len(v.Buildings))
	for _, b := range v.Buildings {
		cells[b.Coord] = b.Kind
	}

	var sb strings.Builder
	sb.WriteString("     ")
	for x := lo; x <= hi; x++ {
		sb.WriteString(axisLabel(x))
	}
	sb.WriteByte('\n')
	for z := lo; z <= hi; z++ {
		fmt.Fprintf(&sb, "%4d ", z)
		for x := lo; x <= hi; x++ {
			sb.WriteByte(Glyph(cells[client.Coord{X: x, Z: z}]))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// axisLabel marks every fifth column with its last digit.
func axisLabel(x int) string {
	if x%5 != 0 {
		return "  "
	}
	s := fmt.Sprint(x)
	return s[len(s)-1:] + " "
}

// Money formats a currency amount with thousands separators.
func Money(amount int) string {
	return "$" + humanize.Comma(int64(amount))
}

// Stats draws the statistics panel.
func Stats(v *client.StateView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Money:      %s\n", Money(v.Treasury))
	fmt.Fprintf(&sb, "Population: %s\n", humanize.Comma(int64(v.Population)))
	fmt.Fprintf(&sb, "Happiness:  %d%%\n", v.Happiness)
	fmt.Fprintf(&sb, "Buildings:  %d\n", v.Stats.Buildings)
	fmt.Fprintf(&sb, "Roads:      %d\n", v.Stats.ByKind["road"])
	fmt.Fprintf(&sb, "Houses:     %d\n", v.Stats.ByKind["residential"])
	tool := v.Selected()
	if tool == "" {
		tool = "none"
	}
	fmt.Fprintf(&sb, "Tool:       %s\n", tool)
	if v.Stats.LowFunds {
		sb.WriteString("Warning: low funds!\n")
	}
	return sb.String()
}

// Catalog draws the toolbar with prices. Unaffordable kinds are marked
// and the armed kind is starred.
func Catalog(entries []client.CatalogEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		mark := " "
		if e.Selected {
			mark = "*"
		}
		note := ""
		if !e.Affordable {
			note = "  (can't afford)"
		}
		fmt.Fprintf(&sb, "%s %c %-12s %8s  +%d pop  +%d happy%s\n",
			mark, Glyph(e.Kind), e.Kind, Money(e.Cost), e.Population, e.Happiness, note)
	}
	return sb.String()
}
