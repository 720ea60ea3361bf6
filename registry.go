package main

import (
	"sync"
	"time"
)

// OverlayRegistry exclusively owns detected-object state, selection state,
// and transform-image state. All reads hand out value copies, never shared
// slices, so renderers and the conversational layer cannot race its owner.
type OverlayRegistry struct {
	mu         sync.RWMutex
	objects    []DetectedObject
	selected   string // object name, "" when nothing is selected
	transforms []OverlayTransform
}

// NewOverlayRegistry returns an empty registry.
func NewOverlayRegistry() *OverlayRegistry {
	return &OverlayRegistry{}
}

// RegistrySnapshot is a value copy of the registry for rendering and prompt
// building.
type RegistrySnapshot struct {
	Objects    []DetectedObject
	Selected   *DetectedObject
	Transforms []OverlayTransform
}

// Snapshot copies the current state.
func (r *OverlayRegistry) Snapshot() RegistrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := RegistrySnapshot{
		Objects:    append([]DetectedObject(nil), r.objects...),
		Transforms: append([]OverlayTransform(nil), r.transforms...),
	}
	for i := range snap.Objects {
		if snap.Objects[i].Name == r.selected {
			obj := snap.Objects[i]
			snap.Selected = &obj
			break
		}
	}
	return snap
}

// Merge replaces the object list wholesale with a new detection batch: each
// detection is authoritative for what is currently visible. Any transform
// whose object name matches a newly detected object has its bounding box
// refreshed in place so the overlay follows the object; transforms whose
// objects disappeared are left untouched since the object may reappear.
// Selection survives only if the selected name is still present.
func (r *OverlayRegistry) Merge(batch []DetectedObject) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.objects = append([]DetectedObject(nil), batch...)

	byName := make(map[string]BoundingBox, len(batch))
	for _, obj := range batch {
		if _, seen := byName[obj.Name]; !seen {
			byName[obj.Name] = obj.Box
		}
	}
	for i := range r.transforms {
		if box, ok := byName[r.transforms[i].ObjectName]; ok {
			r.transforms[i].Box = box
		}
	}

	if r.selected != "" {
		if _, ok := byName[r.selected]; !ok {
			r.selected = ""
		}
	}
}

// Objects returns a copy of the current object list.
func (r *OverlayRegistry) Objects() []DetectedObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]DetectedObject(nil), r.objects...)
}

// Lookup finds an object by name.
func (r *OverlayRegistry) Lookup(name string) (DetectedObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, obj := range r.objects {
		if obj.Name == name {
			return obj, true
		}
	}
	return DetectedObject{}, false
}

// Select marks the named object as selected; an empty name clears the
// selection. Selecting an unknown name is a no-op and reports false.
func (r *OverlayRegistry) Select(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		r.selected = ""
		return true
	}
	for _, obj := range r.objects {
		if obj.Name == name {
			r.selected = name
			return true
		}
	}
	return false
}

// Selected returns the currently selected object, if any.
func (r *OverlayRegistry) Selected() (DetectedObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, obj := range r.objects {
		if obj.Name == r.selected {
			return obj, true
		}
	}
	return DetectedObject{}, false
}

// HitTest resolves a normalized pointer position to the first object whose
// box contains it, in list order. First match wins; overlap is not
// disambiguated by area.
func (r *OverlayRegistry) HitTest(x, y float64) (DetectedObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, obj := range r.objects {
		if obj.Box.Contains(x, y) {
			return obj, true
		}
	}
	return DetectedObject{}, false
}

// PutTransform stores a transform, replacing any existing one for the same
// object name. Exactly one transform per name is retained.
func (r *OverlayRegistry) PutTransform(t OverlayTransform) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	for i := range r.transforms {
		if r.transforms[i].ObjectName == t.ObjectName {
			r.transforms[i] = t
			return
		}
	}
	r.transforms = append(r.transforms, t)
}

// Transform returns the transform for an object name, if present.
func (r *OverlayRegistry) Transform(name string) (OverlayTransform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transforms {
		if t.ObjectName == name {
			return t, true
		}
	}
	return OverlayTransform{}, false
}

// Transforms returns a copy of all transforms.
func (r *OverlayRegistry) Transforms() []OverlayTransform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]OverlayTransform(nil), r.transforms...)
}

// ClearTransforms drops every transform and returns how many were removed.
func (r *OverlayRegistry) ClearTransforms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.transforms)
	r.transforms = nil
	return n
}

// Reset drops all state at session teardown.
func (r *OverlayRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects = nil
	r.selected = ""
	r.transforms = nil
}
