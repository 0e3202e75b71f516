package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snow/renderer"
	"github.com/pthm-cable/snow/telemetry"
)

// GenotypeCount is one line of the HUD population summary.
type GenotypeCount struct {
	Name     string
	Attached int
	Free     int
}

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	Tick          int64
	Time          float64
	DT            float64
	TurnoverEvery int
	Genotypes     []GenotypeCount
	TotalNutrient float64
	Speed         int
	FPS           int32
	Paused        bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD and returns the y below it.
func (h *HUD) Draw(data HUDData) int32 {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Tick: %d | t = %.2f | dt = %.3g | turnover every %d | Speed: %dx | FPS: %d",
			data.Tick, data.Time, data.DT, data.TurnoverEvery, data.Speed, data.FPS),
		10, 35, 16, rl.LightGray,
	)

	y := int32(55)
	for g, c := range data.Genotypes {
		col := renderer.GenotypeColor(g)
		rl.DrawRectangle(10, y+3, 10, 10, rl.Color{R: col.R, G: col.G, B: col.B, A: col.A})
		rl.DrawText(fmt.Sprintf("%s  attached %d  free %d", c.Name, c.Attached, c.Free), 26, y, 16, rl.LightGray)
		y += 18
	}
	rl.DrawText(fmt.Sprintf("Nutrient: %.1f", data.TotalNutrient), 10, y, 16, rl.LightGray)
	y += 20

	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, 10, y, 16, rl.Yellow)
	return y + 20
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders tick phase timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y
	width := int32(260)
	p.renderer.DrawPanel(x-6, y-6, width, int32(len(telemetry.Phases()))*14+50)

	rl.DrawText("Tick Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  (%.0f ticks/s)", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond),
		x, y, 14, rl.Yellow)
	y += 16

	for _, phase := range telemetry.Phases() {
		name := phase.String()
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
