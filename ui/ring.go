package ui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snow/camera"
	"github.com/pthm-cable/snow/renderer"
	"github.com/pthm-cable/snow/simulation"
)

// RingView selects what the ring renderer shows.
type RingView struct {
	Nutrient bool
	Free     bool
	Serials  bool
	LogScale bool
	Share    bool // stack attached cells as fractions of the column
	Selected int  // highlighted particle, -1 for none
}

// RingRenderer draws particles oldest to newest as columns. Each column
// shows the remaining nutrient as its background, attached cells stacked
// per genotype and free pools as a strip underneath. The camera selects
// which particles are on screen.
type RingRenderer struct {
	renderer *Renderer
	bounds   rl.Rectangle
	cam      *camera.Camera
	first    int // particle index of columns[0]
	columns  []rl.Rectangle
}

// NewRingRenderer creates a ring renderer for n particles drawing inside bounds.
func NewRingRenderer(bounds rl.Rectangle, n int) *RingRenderer {
	return &RingRenderer{
		renderer: NewRenderer(),
		bounds:   bounds,
		cam:      camera.New(bounds.Width, n),
	}
}

// SetBounds moves the drawing area.
func (rr *RingRenderer) SetBounds(bounds rl.Rectangle) {
	rr.bounds = bounds
	rr.cam.Resize(bounds.Width)
}

// Camera returns the viewport over the particle sequence.
func (rr *RingRenderer) Camera() *camera.Camera { return rr.cam }

// Contains reports whether p lies inside the drawing area.
func (rr *RingRenderer) Contains(p rl.Vector2) bool {
	return rl.CheckCollisionPointRec(p, rr.bounds)
}

const freeStrip = 40

func (rr *RingRenderer) layout(n int) []rl.Rectangle {
	if float32(n) != rr.cam.Length {
		rr.cam.SetLength(n)
	}
	first, last := rr.cam.VisibleRange()
	rr.first = first
	rr.columns = rr.columns[:0]

	scale := rr.cam.Scale()
	gap := float32(2)
	if scale < 6 {
		gap = 0
	}
	for i := first; i < last; i++ {
		x0 := max(rr.cam.WorldToScreen(float32(i)), 0)
		x1 := min(rr.cam.WorldToScreen(float32(i+1))-gap, rr.bounds.Width)
		rr.columns = append(rr.columns, rl.Rectangle{
			X:      rr.bounds.X + x0,
			Y:      rr.bounds.Y,
			Width:  max(x1-x0, 1),
			Height: rr.bounds.Height - freeStrip,
		})
	}
	return rr.columns
}

// HitTest returns the particle index under the point, or -1.
func (rr *RingRenderer) HitTest(p rl.Vector2) int {
	for i, col := range rr.columns {
		full := col
		full.Height += freeStrip
		if rl.CheckCollisionPointRec(p, full) {
			return rr.first + i
		}
	}
	return -1
}

// Draw renders the structure. c0 is the concentration of a fresh particle.
func (rr *RingRenderer) Draw(st simulation.Structure, c0 float64, view RingView) {
	n := len(st.Conc)
	if n == 0 {
		return
	}
	cols := rr.layout(n)

	// Shared scale so columns are comparable
	maxAttached, maxFree := 1, 1
	for i := 0; i < n; i++ {
		var a, f int
		for g := range st.Genotypes {
			a += st.Attached[g][i]
			f += st.Free[g][i]
		}
		maxAttached = max(maxAttached, a)
		maxFree = max(maxFree, f)
	}
	scale := func(v, top int) float32 {
		if view.LogScale {
			return float32(math.Log1p(float64(v)) / math.Log1p(float64(top)))
		}
		return float32(v) / float32(top)
	}

	for ci, col := range cols {
		i := rr.first + ci
		bg := rr.renderer.Theme.BarBg
		if view.Nutrient && c0 > 0 {
			c := renderer.NutrientColor(st.Conc[i] / c0)
			bg = rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
		}
		rl.DrawRectangleRec(col, bg)

		var total int
		for g := range st.Genotypes {
			total += st.Attached[g][i]
		}

		// Attached cells, stacked bottom up
		y := col.Y + col.Height
		for g := range st.Genotypes {
			a := st.Attached[g][i]
			if a == 0 {
				continue
			}
			var h float32
			switch {
			case view.Share:
				h = col.Height * float32(a) / float32(total)
			case view.LogScale:
				// Log height of the whole stack split by share
				h = col.Height * scale(total, maxAttached) * float32(a) / float32(total)
			default:
				h = col.Height * scale(a, maxAttached)
			}
			y -= h
			c := renderer.GenotypeColor(g)
			rl.DrawRectangleRec(rl.Rectangle{X: col.X, Y: y, Width: col.Width, Height: h}, rl.Color{R: c.R, G: c.G, B: c.B, A: 230})
		}

		if view.Free {
			fy := col.Y + col.Height + 4
			fh := float32(freeStrip - 8)
			x := col.X
			for g := range st.Genotypes {
				f := st.Free[g][i]
				if f > 0 {
					w := col.Width * scale(f, maxFree) / float32(len(st.Genotypes))
					c := renderer.GenotypeColor(g)
					rl.DrawRectangleRec(rl.Rectangle{X: x, Y: fy, Width: w, Height: fh}, rl.Color{R: c.R, G: c.G, B: c.B, A: 140})
				}
				x += col.Width / float32(len(st.Genotypes))
			}
		}

		if view.Serials && col.Width >= 24 {
			rl.DrawText(fmt.Sprint(st.Serial[i]), int32(col.X)+2, int32(col.Y)+2, 10, rl.White)
		}
		if i == view.Selected {
			rl.DrawRectangleLinesEx(rl.Rectangle{X: col.X, Y: col.Y, Width: col.Width, Height: col.Height + freeStrip},
				2, rr.renderer.Theme.Highlight)
		}
	}

	// Axis labels
	first, last := rr.first, rr.first+len(cols)
	rl.DrawText(fmt.Sprintf("oldest (%d)", first), int32(rr.bounds.X), int32(rr.bounds.Y+rr.bounds.Height)+4, 12, rl.Gray)
	newest := fmt.Sprintf("(%d) newest", last-1)
	rl.DrawText(newest, int32(rr.bounds.X+rr.bounds.Width)-rl.MeasureText(newest, 12), int32(rr.bounds.Y+rr.bounds.Height)+4, 12, rl.Gray)
}
