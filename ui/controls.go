package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlState is the run state edited by the controls panel.
type ControlState struct {
	Paused bool
	Speed  int     // ticks per frame
	DT     float64 // tick length
}

// ControlAction is a one-shot request from the controls panel.
type ControlAction int

const (
	ActionNone ControlAction = iota
	ActionStep
	ActionReset
)

const (
	maxSpeed = 200
	minDT    = 0.01
	maxDT    = 1.0
)

// ControlsPanel renders the right-side run controls and overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Draw renders the panel, applies slider edits to state and returns any
// button action pressed this frame.
func (c *ControlsPanel) Draw(state *ControlState, overlays *OverlayRegistry) ControlAction {
	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	toggles := 0
	categories := overlays.Categories()
	for _, cat := range categories {
		toggles += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(toggles)*(lineHeight+6) + 230
	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	inner := float32(c.width - padding*2)
	action := ActionNone

	rl.DrawText("Controls", int32(x), int32(y), 16, rl.White)
	y += 24

	half := (inner - 10) / 2
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 26}, toggleText(state.Paused, "Resume", "Pause")) {
		state.Paused = !state.Paused
	}
	if gui.Button(rl.Rectangle{X: x + half + 10, Y: y, Width: half, Height: 26}, "Step") {
		action = ActionStep
	}
	y += 34
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: inner, Height: 26}, "Reset") {
		action = ActionReset
	}
	y += 40

	// Speed slider
	rl.DrawText(fmt.Sprintf("Ticks per frame: %d", state.Speed), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += 16
	speed := gui.SliderBar(rl.Rectangle{X: x + 20, Y: y, Width: inner - 50, Height: 16}, "1", fmt.Sprint(maxSpeed),
		float32(state.Speed), 1, maxSpeed)
	state.Speed = max(1, int(speed))
	y += 28

	// Tick length slider on a log scale
	rl.DrawText(fmt.Sprintf("dt: %.3f", state.DT), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += 16
	logDT := gui.SliderBar(rl.Rectangle{X: x + 20, Y: y, Width: inner - 50, Height: 16}, "", "",
		float32(math.Log10(state.DT)), float32(math.Log10(minDT)), float32(math.Log10(maxDT)))
	if dt := math.Pow(10, float64(logDT)); math.Abs(dt-state.DT) > 1e-6 {
		state.DT = math.Round(dt*1000) / 1000
	}
	y += 34

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), int32(x), int32(y), r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += float32(lineHeight) + 6
		for _, desc := range overlays.ByCategory(category) {
			label := fmt.Sprintf("%s [%s]", desc.Name, desc.KeyLabel)
			if gui.Button(rl.Rectangle{X: x, Y: y, Width: inner, Height: float32(lineHeight) + 2},
				toggleText(overlays.IsEnabled(desc.ID), "* "+label, label)) {
				overlays.Toggle(desc.ID)
			}
			y += float32(lineHeight) + 6
		}
	}

	return action
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "ring":
		return "Particles"
	case "scale":
		return "Scale"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}
