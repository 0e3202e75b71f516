package ui

import (
	"context"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snow/config"
	"github.com/pthm-cable/snow/simulation"
)

const (
	sidePanelWidth = 280
	snapshotDir    = "snapshots"
	controlsLegend = "[Space] Pause  [Right] Step  [+/-] Speed  [Click] Inspect  [Wheel/Drag] Zoom/Pan  [Home] Fit  [K] Snapshot  [N/F/R/L/S/P] Overlays  [Backspace] Reset"
)

// Viewer is the live raylib view of one simulation.
type Viewer struct {
	cfg  *config.Config
	opts simulation.Options
	sim  *simulation.Simulation
	log  *slog.Logger

	state    ControlState
	overlays *OverlayRegistry
	selected int

	hud       *HUD
	perfPanel *PerfPanel
	controls  *ControlsPanel
	inspector *Inspector
	ring      *RingRenderer

	width, height int32
}

// NewViewer builds the simulation described by cfg and the panels around it.
// The window is opened by Run.
func NewViewer(cfg *config.Config, opts simulation.Options) (*Viewer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	sim, err := simulation.New(cfg, opts)
	if err != nil {
		return nil, err
	}

	w, h := int32(cfg.Viewer.Width), int32(cfg.Viewer.Height)
	v := &Viewer{
		cfg:      cfg,
		opts:     opts,
		sim:      sim,
		log:      opts.Logger,
		overlays: NewOverlayRegistry(),
		selected: -1,
		state: ControlState{
			Speed: max(1, cfg.Viewer.StepsPerFrame),
			DT:    cfg.Environment.DeltaT,
		},
		hud:       NewHUD(),
		perfPanel: NewPerfPanel(10, h-190),
		controls:  NewControlsPanel(w-sidePanelWidth-10, 10, sidePanelWidth),
		inspector: NewInspector(w-sidePanelWidth-10, 0, sidePanelWidth),
		width:     w,
		height:    h,
	}
	v.ring = NewRingRenderer(rl.Rectangle{
		X:      10,
		Y:      150,
		Width:  float32(w - sidePanelWidth - 40),
		Height: float32(h) - 390,
	}, cfg.Environment.NParticles)
	return v, nil
}

// Simulation returns the running simulation.
func (v *Viewer) Simulation() *simulation.Simulation { return v.sim }

// Tick returns the current simulation tick.
func (v *Viewer) Tick() int64 { return v.sim.Tick() }

// Run opens the window and loops until it is closed, ctx is cancelled or
// maxTicks ticks have run (0 = unlimited).
func (v *Viewer) Run(ctx context.Context, maxTicks int64) error {
	rl.InitWindow(v.width, v.height, "Snow: particle colonization")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(v.cfg.Viewer.TargetFPS))

	v.log.Info("viewer started", "width", v.width, "height", v.height, "particles", v.cfg.Environment.NParticles)
	for !rl.WindowShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		v.Update()
		v.Draw()
		if maxTicks > 0 && v.Tick() >= maxTicks {
			v.log.Info("max ticks reached", "tick", v.Tick())
			break
		}
	}
	return nil
}

// Update handles input and advances the simulation for one frame.
func (v *Viewer) Update() {
	v.sim.Perf().RecordFrame()
	v.overlays.HandleKeys()

	step := false
	switch {
	case rl.IsKeyPressed(rl.KeySpace):
		v.state.Paused = !v.state.Paused
	case rl.IsKeyPressed(rl.KeyRight):
		step = true
	case rl.IsKeyPressed(rl.KeyEqual), rl.IsKeyPressed(rl.KeyKpAdd):
		v.state.Speed = min(v.state.Speed*2, maxSpeed)
	case rl.IsKeyPressed(rl.KeyMinus), rl.IsKeyPressed(rl.KeyKpSubtract):
		v.state.Speed = max(v.state.Speed/2, 1)
	case rl.IsKeyPressed(rl.KeyBackspace):
		v.reset()
	case rl.IsKeyPressed(rl.KeyK):
		if path, err := v.sim.SaveSnapshot(snapshotDir); err != nil {
			v.log.Error("failed to save snapshot", "error", err)
		} else {
			v.log.Info("snapshot saved", "path", path)
		}
	}

	v.updateCamera()

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		if i := v.ring.HitTest(rl.GetMousePosition()); i >= 0 {
			v.selected = i
		} else if rl.GetMouseX() < v.width-sidePanelWidth-10 {
			v.selected = -1
		}
	}

	switch {
	case step:
		v.sim.Step(v.state.DT)
	case !v.state.Paused:
		for i := 0; i < v.state.Speed; i++ {
			v.sim.Step(v.state.DT)
		}
	}
}

// updateCamera zooms the ring with the wheel and pans it with a right drag.
func (v *Viewer) updateCamera() {
	cam := v.ring.Camera()
	mouse := rl.GetMousePosition()
	if rl.IsKeyPressed(rl.KeyHome) {
		cam.Reset()
	}
	if !v.ring.Contains(mouse) {
		return
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		factor := float32(1.25)
		if wheel < 0 {
			factor = 1 / factor
		}
		cam.ZoomBy(factor, mouse.X-v.ring.bounds.X)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		cam.Pan(-rl.GetMouseDelta().X)
	}
}

func (v *Viewer) reset() {
	sim, err := simulation.New(v.cfg, v.opts)
	if err != nil {
		v.log.Error("failed to reset simulation", "error", err)
		return
	}
	v.sim = sim
	v.selected = -1
	v.ring.Camera().Reset()
	v.log.Info("simulation reset")
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(v.hud.renderer.Theme.Background)

	st := v.sim.Structure()
	env := v.sim.Environment()

	data := HUDData{
		Title:         "Snow",
		Tick:          v.sim.Tick(),
		Time:          v.sim.Time(),
		DT:            v.state.DT,
		TurnoverEvery: v.sim.AbioticEvery(),
		TotalNutrient: env.TotalNutrient(),
		Speed:         v.state.Speed,
		FPS:           rl.GetFPS(),
		Paused:        v.state.Paused,
	}
	for _, p := range v.sim.Populations() {
		data.Genotypes = append(data.Genotypes, GenotypeCount{
			Name:     p.Genotype().Name,
			Attached: p.AttachedTotal(),
			Free:     p.FreeTotal(),
		})
	}
	v.hud.Draw(data)

	v.ring.Draw(st, v.cfg.Environment.C0, RingView{
		Nutrient: v.overlays.IsEnabled(OverlayNutrient),
		Free:     v.overlays.IsEnabled(OverlayFreePools),
		Serials:  v.overlays.IsEnabled(OverlaySerials),
		LogScale: v.overlays.IsEnabled(OverlayLogScale),
		Share:    v.overlays.IsEnabled(OverlayShare),
		Selected: v.selected,
	})

	switch v.controls.Draw(&v.state, v.overlays) {
	case ActionStep:
		v.sim.Step(v.state.DT)
	case ActionReset:
		v.reset()
	}

	if v.selected >= 0 && v.selected < env.Len() {
		ins := InspectorData{
			Index:    v.selected,
			Particle: env.Particle(v.selected),
			Lineage:  env.Lineage(v.selected),
			C0:       v.cfg.Environment.C0,
			Tick:     env.Tick(),
		}
		for _, p := range v.sim.Populations() {
			ins.Genotype = append(ins.Genotype, CompartmentView{
				Name:     p.Genotype().Name,
				Attached: p.Attached(v.selected),
				Free:     p.Free(v.selected).Size(),
			})
		}
		v.inspector.SetPosition(v.width-sidePanelWidth-10, v.height-v.inspector.renderer.PanelHeight(v.inspector.Layout(ins), ins)-40)
		v.inspector.Draw(ins)
	}

	if v.overlays.IsEnabled(OverlayPerf) {
		v.perfPanel.Draw(v.sim.Perf().Stats())
	}

	v.hud.DrawControls(v.height, controlsLegend)
	if v.state.Paused {
		msg := fmt.Sprintf("paused at t = %.2f", v.sim.Time())
		rl.DrawText(msg, (v.width-rl.MeasureText(msg, 20))/2, 10, 20, rl.Yellow)
	}
}
