package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

const (
	OverlayNutrient  OverlayID = "nutrient"
	OverlayFreePools OverlayID = "free_pools"
	OverlayLogScale  OverlayID = "log_scale"
	OverlayShare     OverlayID = "share"
	OverlaySerials   OverlayID = "serials"
	OverlayPerf      OverlayID = "perf"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID        OverlayID
	Name      string
	Key       int32  // keyboard toggle, 0 = none
	KeyLabel  string // e.g. "N"
	Category  string
	Exclusive []OverlayID // disabled when this one is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with the viewer overlays. Nutrient
// and free pools start enabled.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.Register(OverlayDescriptor{ID: OverlayNutrient, Name: "Nutrient", Key: rl.KeyN, KeyLabel: "N", Category: "ring"})
	reg.Register(OverlayDescriptor{ID: OverlayFreePools, Name: "Free Pools", Key: rl.KeyF, KeyLabel: "F", Category: "ring"})
	reg.Register(OverlayDescriptor{ID: OverlaySerials, Name: "Serials", Key: rl.KeyR, KeyLabel: "R", Category: "ring"})
	reg.Register(OverlayDescriptor{
		ID: OverlayLogScale, Name: "Log Scale", Key: rl.KeyL, KeyLabel: "L", Category: "scale",
		Exclusive: []OverlayID{OverlayShare},
	})
	reg.Register(OverlayDescriptor{
		ID: OverlayShare, Name: "Genotype Share", Key: rl.KeyS, KeyLabel: "S", Category: "scale",
		Exclusive: []OverlayID{OverlayLogScale},
	})
	reg.Register(OverlayDescriptor{ID: OverlayPerf, Name: "Perf Panel", Key: rl.KeyP, KeyLabel: "P", Category: "debug"})

	reg.SetEnabled(OverlayNutrient, true)
	reg.SetEnabled(OverlayFreePools, true)
	return reg
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = false
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	r.SetEnabled(id, !r.enabled[id])
	return r.enabled[id]
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}
	r.enabled[id] = enabled
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in registration order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeys toggles every overlay whose key was pressed this frame.
func (r *OverlayRegistry) HandleKeys() {
	for _, desc := range r.descriptors {
		if desc.Key != 0 && rl.IsKeyPressed(desc.Key) {
			r.Toggle(desc.ID)
		}
	}
}
