package main

import "fmt"

// StyleID names one of the fixed style presets.
type StyleID string

const (
	StyleZen          StyleID = "zen"
	StyleCyberpunk    StyleID = "cyberpunk"
	StyleProfessional StyleID = "professional"
	StyleFantasy      StyleID = "fantasy"
	StyleMinimalist   StyleID = "minimalist"
	StyleCozy         StyleID = "cozy"
)

// FilterConfig parameterizes the instant-tier transform. Brightness and
// saturation are multipliers, contrast is a gain around mid-gray, and the
// blend color is laid over the region at BlendAlpha.
type FilterConfig struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	BlendR     uint8
	BlendG     uint8
	BlendB     uint8
	BlendAlpha float64
}

// StylePreset couples the instant-tier filter with the textual descriptor
// used in high-fidelity prompts.
type StylePreset struct {
	ID         StyleID
	Label      string
	Descriptor string
	Filter     FilterConfig
}

// stylePresets is the fixed preset set, in display order.
var stylePresets = []StylePreset{
	{
		ID: StyleZen, Label: "Zen",
		Descriptor: "calm zen style with natural materials, soft greens and balanced negative space",
		Filter:     FilterConfig{Brightness: 1.05, Contrast: 0.95, Saturation: 0.85, BlendR: 34, BlendG: 120, BlendB: 80, BlendAlpha: 0.18},
	},
	{
		ID: StyleCyberpunk, Label: "Cyber",
		Descriptor: "neon cyberpunk style with saturated cyan and magenta accents and hard reflections",
		Filter:     FilterConfig{Brightness: 0.92, Contrast: 1.25, Saturation: 1.4, BlendR: 0, BlendG: 180, BlendB: 220, BlendAlpha: 0.22},
	},
	{
		ID: StyleProfessional, Label: "Pro",
		Descriptor: "clean professional office style in muted slate and graphite tones",
		Filter:     FilterConfig{Brightness: 1.0, Contrast: 1.1, Saturation: 0.7, BlendR: 110, BlendG: 118, BlendB: 130, BlendAlpha: 0.15},
	},
	{
		ID: StyleFantasy, Label: "Fantasy",
		Descriptor: "whimsical fantasy style with rich purples, warm golds and ornate detail",
		Filter:     FilterConfig{Brightness: 1.08, Contrast: 1.05, Saturation: 1.25, BlendR: 150, BlendG: 80, BlendB: 200, BlendAlpha: 0.2},
	},
	{
		ID: StyleMinimalist, Label: "Minimal",
		Descriptor: "minimalist style with clean lines, white surfaces and almost no ornament",
		Filter:     FilterConfig{Brightness: 1.12, Contrast: 0.9, Saturation: 0.6, BlendR: 235, BlendG: 235, BlendB: 232, BlendAlpha: 0.2},
	},
	{
		ID: StyleCozy, Label: "Cozy",
		Descriptor: "cozy hygge style with warm amber light, soft textiles and wood grain",
		Filter:     FilterConfig{Brightness: 1.06, Contrast: 1.0, Saturation: 1.1, BlendR: 230, BlendG: 150, BlendB: 60, BlendAlpha: 0.2},
	},
}

// LookupStyle resolves a preset by ID.
func LookupStyle(id StyleID) (StylePreset, error) {
	for _, p := range stylePresets {
		if p.ID == id {
			return p, nil
		}
	}
	return StylePreset{}, fmt.Errorf("unknown style preset %q", id)
}

// StyleIDs returns the preset IDs in display order.
func StyleIDs() []StyleID {
	ids := make([]StyleID, len(stylePresets))
	for i, p := range stylePresets {
		ids[i] = p.ID
	}
	return ids
}
