package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snow/environment"
	"github.com/pthm-cable/snow/population"
	"github.com/pthm-cable/snow/renderer"
)

// CompartmentView is one genotype's state at the inspected particle.
type CompartmentView struct {
	Name     string
	Attached *population.Attached
	Free     int
}

// InspectorData holds all the data needed to render the inspector panel.
type InspectorData struct {
	Index    int
	Particle *environment.Particle
	Lineage  environment.Lineage
	C0       float64
	Tick     int64
	Genotype []CompartmentView
}

// Inspector renders the selected particle.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

var particleSection = SectionDescriptor{
	Title: "Particle",
	Fields: []FieldDescriptor{
		{Label: "Serial", Widget: WidgetText, TextGetter: func(d any) string {
			return fmt.Sprint(d.(InspectorData).Lineage.Serial)
		}},
		{Label: "Age", Widget: WidgetText, TextGetter: func(d any) string {
			data := d.(InspectorData)
			return fmt.Sprintf("%d ticks", data.Tick-data.Lineage.BornTick)
		}},
		{Label: "Nutrient", Widget: WidgetText, Format: "%.3f", Getter: func(d any) float32 {
			return float32(d.(InspectorData).Particle.Conc)
		}},
		{Label: "Fill", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 1}, Getter: func(d any) float32 {
			data := d.(InspectorData)
			if data.C0 <= 0 {
				return 0
			}
			return float32(data.Particle.Conc / data.C0)
		}},
		{Label: "Sites", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 {
			return float32(d.(InspectorData).Particle.Capacity())
		}},
	},
}

func compartmentSection(g int, name string) SectionDescriptor {
	c := renderer.GenotypeColor(g)
	fill := rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
	view := func(d any) CompartmentView { return d.(InspectorData).Genotype[g] }
	return SectionDescriptor{
		Title: name,
		Fields: []FieldDescriptor{
			{Label: "Attached", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 {
				return float32(view(d).Attached.Size())
			}},
			{Label: "Free", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 {
				return float32(view(d).Free)
			}},
			{Label: "Biomass", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 1}, Color: fill, Getter: func(d any) float32 {
				return float32(view(d).Attached.Biomass())
			}},
			{Label: "Detaching", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 1}, Color: fill, Getter: func(d any) float32 {
				return float32(view(d).Attached.Outgoing())
			}},
			{Label: "Attaching", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 1}, Color: fill, Getter: func(d any) float32 {
				return float32(view(d).Attached.Incoming())
			}},
		},
	}
}

// Layout returns the panel descriptor for data.
func (ins *Inspector) Layout(data InspectorData) PanelDescriptor {
	pd := PanelDescriptor{
		Title:    fmt.Sprintf("Particle %d", data.Index),
		Sections: []SectionDescriptor{particleSection},
		Width:    ins.width,
	}
	for g, cv := range data.Genotype {
		pd.Sections = append(pd.Sections, compartmentSection(g, cv.Name))
	}
	return pd
}

// Draw renders the inspector panel and returns the y below it.
func (ins *Inspector) Draw(data InspectorData) int32 {
	r := ins.renderer
	padding := r.Theme.Padding
	pd := ins.Layout(data)

	r.DrawPanel(ins.x, ins.y, ins.width, r.PanelHeight(pd, data))

	y := ins.y + padding
	rl.DrawText(pd.Title, ins.x+padding, y, 16, rl.White)
	y += r.Theme.LineHeight + 4

	for _, sd := range pd.Sections {
		y = r.DrawSection(ins.x+padding, y, sd, data, ins.width-padding*2)
	}
	return y + padding
}
