// Package geometry builds the month outline paths drawn behind the grid.
package geometry

import (
	"strconv"
	"strings"
)

// Region is a run of cells in visual grid coordinates. Cells fill each
// column top to bottom before wrapping to the next column.
type Region struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// Grid describes the pixel geometry the region lives in. Top is the y of
// row 0; Bottom is where regions ending on the last row extend to.
type Grid struct {
	Stride float64
	Radius float64
	Top    float64
	Bottom float64
	Rows   int
}

// MonthOutline returns SVG path data for a closed rounded outline hugging
// exactly the cells of r. Every turn is a quarter arc of g.Radius.
func MonthOutline(r Region, g Grid) string {
	w := g.Stride
	rad := g.Radius

	xStart := float64(r.StartCol) * w
	yStart := g.Top + float64(r.StartRow)*w
	xEnd := float64(r.EndCol)*w + w
	yEndBottom := g.Top + float64(r.EndRow)*w + w

	endsOnLastRow := r.EndRow == g.Rows-1
	yBottom := yEndBottom
	if endsOnLastRow {
		yBottom = g.Bottom
	}

	p := &pathBuilder{r: rad}

	if r.StartCol == r.EndCol {
		p.move(xStart+rad, yStart)
		p.line(xStart+w-rad, yStart)
		p.arc(rad, rad, 1)
		p.line(xStart+w, yBottom-rad)
		p.arc(-rad, rad, 1)
		p.line(xStart+rad, yBottom)
		p.arc(-rad, -rad, 1)
		p.line(xStart, yStart+rad)
		p.arc(rad, -rad, 1)
		p.close()
		return p.String()
	}

	p.move(xStart+rad, yStart)
	p.line(xStart+w-rad, yStart)
	if r.StartRow > 0 {
		// step up from the partial first column to the grid top
		p.arc(rad, -rad, 0)
		p.line(xStart+w, g.Top+rad)
		p.arc(rad, -rad, 1)
	}
	p.line(xEnd-rad, g.Top)
	p.arc(rad, rad, 1)
	p.line(xEnd, yBottom-rad)
	p.arc(-rad, rad, 1)
	if !endsOnLastRow {
		// step down from the partial last column to the grid bottom
		p.line(xEnd-w+rad, yBottom)
		p.arc(-rad, rad, 0)
		p.line(xEnd-w, g.Bottom-rad)
		p.arc(-rad, rad, 1)
	} else {
		p.line(xEnd-w, g.Bottom)
	}
	p.line(xStart+rad, g.Bottom)
	p.arc(-rad, -rad, 1)
	p.line(xStart, yStart+rad)
	p.arc(rad, -rad, 1)
	p.close()
	return p.String()
}

type pathBuilder struct {
	r     float64
	parts []string
}

func (p *pathBuilder) move(x, y float64) {
	p.parts = append(p.parts, "M "+num(x)+","+num(y))
}

func (p *pathBuilder) line(x, y float64) {
	p.parts = append(p.parts, "L "+num(x)+","+num(y))
}

// arc appends a relative quarter arc ending dx,dy away with the given sweep flag.
func (p *pathBuilder) arc(dx, dy float64, sweep int) {
	p.parts = append(p.parts,
		"a "+num(p.r)+","+num(p.r)+" 0 0 "+strconv.Itoa(sweep)+" "+num(dx)+","+num(dy))
}

func (p *pathBuilder) close() {
	p.parts = append(p.parts, "Z")
}

func (p *pathBuilder) String() string {
	return strings.Join(p.parts, " ")
}

func num(v float64) string {
	if v == 0 {
		// avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
