// Package camera provides a 1D viewport over the particle sequence.
package camera

// Camera maps particle positions to screen columns. Position and length are
// in particle units; zoom 1 fits the whole sequence into the viewport.
type Camera struct {
	// Position is the particle coordinate at the viewport center
	X float32

	// Zoom level (1.0 = whole sequence visible)
	Zoom float32

	// Viewport width in pixels
	ViewportW float32

	// Number of particles
	Length float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// minVisible is the fewest particles a fully zoomed camera still shows.
const minVisible = 4

// New creates a camera showing all n particles in a viewport of the given width.
func New(viewportW float32, n int) *Camera {
	c := &Camera{ViewportW: viewportW, MinZoom: 1}
	c.SetLength(n)
	c.Reset()
	return c
}

// SetLength updates the particle count and the zoom limit that depends on it.
func (c *Camera) SetLength(n int) {
	c.Length = float32(max(n, 1))
	c.MaxZoom = max(1, c.Length/minVisible)
	c.SetZoom(c.Zoom)
	c.clampPosition()
}

// Scale returns pixels per particle at the current zoom.
func (c *Camera) Scale() float32 {
	return c.ViewportW * c.Zoom / c.Length
}

// WorldToScreen converts a particle coordinate to a viewport x offset.
func (c *Camera) WorldToScreen(wx float32) float32 {
	return c.ViewportW/2 + (wx-c.X)*c.Scale()
}

// ScreenToWorld converts a viewport x offset to a particle coordinate.
func (c *Camera) ScreenToWorld(sx float32) float32 {
	return c.X + (sx-c.ViewportW/2)/c.Scale()
}

// Resize updates the viewport width.
func (c *Camera) Resize(viewportW float32) {
	c.ViewportW = viewportW
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx float32) {
	c.X += dx / c.Scale()
	c.clampPosition()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampPosition()
}

// ZoomBy multiplies the current zoom by factor keeping the particle under
// the viewport offset anchorX in place.
func (c *Camera) ZoomBy(factor, anchorX float32) {
	before := c.ScreenToWorld(anchorX)
	c.Zoom = clamp(c.Zoom*factor, c.MinZoom, c.MaxZoom)
	c.X += before - c.ScreenToWorld(anchorX)
	c.clampPosition()
}

// Reset shows the whole sequence.
func (c *Camera) Reset() {
	c.Zoom = 1
	c.X = c.Length / 2
}

// VisibleRange returns the half-open range of particle indices at least
// partly inside the viewport.
func (c *Camera) VisibleRange() (first, last int) {
	half := c.ViewportW / (2 * c.Scale())
	lo := c.X - half
	hi := c.X + half
	first = max(int(lo), 0)
	last = min(int(hi+0.999), int(c.Length))
	return first, last
}

// clampPosition keeps the viewport inside the sequence.
func (c *Camera) clampPosition() {
	if c.Zoom == 0 {
		return
	}
	half := c.Length / (2 * c.Zoom)
	c.X = clamp(c.X, half, c.Length-half)
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
