package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	_ "image/jpeg"
)

// applyInstantFilter produces the instant-tier transform: a purely local,
// deterministic filter pass over the pixel region covering the object's
// bounding box, sampled from the given frame. No network. Same frame region
// and preset always yield byte-identical PNG output.
func applyInstantFilter(frame Frame, obj DetectedObject, preset StylePreset) (OverlayTransform, error) {
	src, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return OverlayTransform{}, fmt.Errorf("failed to decode frame: %w", err)
	}

	b := src.Bounds()
	region := pixelRect(obj.Box, b.Dx(), b.Dy()).Add(b.Min).Intersect(b)
	if region.Empty() {
		return OverlayTransform{}, fmt.Errorf("object %q region is empty", obj.Name)
	}

	out := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	f := preset.Filter
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			out.SetRGBA(x-region.Min.X, y-region.Min.Y, filterPixel(uint8(r>>8), uint8(g>>8), uint8(bl>>8), f))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return OverlayTransform{}, fmt.Errorf("failed to encode transform: %w", err)
	}

	return OverlayTransform{
		ObjectName: obj.Name,
		Style:      preset.ID,
		ImageData:  buf.Bytes(),
		MIMEType:   "image/png",
		Box:        obj.Box,
		Fidelity:   FidelityInstant,
		CreatedAt:  time.Unix(0, 0), // fixed timestamp keeps output deterministic
	}, nil
}

// filterPixel applies saturation, contrast, brightness and the style's
// translucent color blend to one pixel.
func filterPixel(r, g, b uint8, f FilterConfig) color.RGBA {
	rf, gf, bf := float64(r), float64(g), float64(b)

	// Saturation: lerp between luma and the original channel.
	luma := 0.299*rf + 0.587*gf + 0.114*bf
	rf = luma + (rf-luma)*f.Saturation
	gf = luma + (gf-luma)*f.Saturation
	bf = luma + (bf-luma)*f.Saturation

	// Contrast around mid-gray, then brightness.
	rf = ((rf-128)*f.Contrast + 128) * f.Brightness
	gf = ((gf-128)*f.Contrast + 128) * f.Brightness
	bf = ((bf-128)*f.Contrast + 128) * f.Brightness

	// Translucent color blend.
	a := f.BlendAlpha
	rf = rf*(1-a) + float64(f.BlendR)*a
	gf = gf*(1-a) + float64(f.BlendG)*a
	bf = bf*(1-a) + float64(f.BlendB)*a

	return color.RGBA{clampByte(rf), clampByte(gf), clampByte(bf), 0xff}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// failedUpgrade remembers the exact (object, style) pair of the last failed
// high-fidelity upgrade so Retry replays it unchanged.
type failedUpgrade struct {
	ObjectName string
	Style      StyleID
	Notice     string
}

var errTransformBusy = errors.New("a transform is already in progress")

// ApplyStyle runs the instant tier for the named object and active preset:
// capture the current frame, filter the object region locally, and store the
// result as that object's transform. Completes synchronously.
func (s *Session) ApplyStyle(ctx context.Context, objectName string, style StyleID) (OverlayTransform, error) {
	preset, err := LookupStyle(style)
	if err != nil {
		return OverlayTransform{}, err
	}
	obj, ok := s.registry.Lookup(objectName)
	if !ok {
		return OverlayTransform{}, fmt.Errorf("no detected object named %q", objectName)
	}

	frame, err := s.frames.CaptureFrame(ctx)
	if err != nil {
		s.setStatus("CAPTURE_FAILED")
		return OverlayTransform{}, fmt.Errorf("%w: cannot sample object region", ErrInputCapture)
	}

	t, err := applyInstantFilter(frame, obj, preset)
	if err != nil {
		return OverlayTransform{}, err
	}
	s.registry.PutTransform(t)
	s.setStatus("TRANSFORM_APPLIED")
	return t, nil
}

// UpgradeStyle runs the high-fidelity tier: a remote image generation that,
// on success, replaces the object's overlay with one tagged highDef. On
// failure the instant-tier overlay is preserved unchanged and the failure is
// recorded for Retry with the exact same (object, style) pair. The latest
// failure notice replaces any prior one.
func (s *Session) UpgradeStyle(ctx context.Context, objectName string, style StyleID) (OverlayTransform, error) {
	preset, err := LookupStyle(style)
	if err != nil {
		return OverlayTransform{}, err
	}
	obj, ok := s.registry.Lookup(objectName)
	if !ok {
		return OverlayTransform{}, fmt.Errorf("no detected object named %q", objectName)
	}

	s.mu.Lock()
	if s.transforming {
		s.mu.Unlock()
		return OverlayTransform{}, errTransformBusy
	}
	s.transforming = true
	scene := s.scene
	s.mu.Unlock()
	s.setStatus("TRANSFORMING: " + objectName)

	prompt := fmt.Sprintf("A %s style %s. %s. Photorealistic, matching indoor room lighting, product shot on transparent background.",
		preset.ID, obj.Name, obj.Description)
	if scene.Mood != "" {
		prompt += fmt.Sprintf(" Room mood: %s.", scene.Mood)
	}
	if len(scene.ColorPalette) > 0 {
		prompt += fmt.Sprintf(" Room palette: %v.", scene.ColorPalette)
	}

	img, err := s.model.GenerateImage(ctx, prompt, preset.Descriptor)

	s.mu.Lock()
	s.transforming = false
	if err != nil {
		s.lastFailure = &failedUpgrade{
			ObjectName: obj.Name,
			Style:      preset.ID,
			Notice:     fmt.Sprintf("High-fidelity transform of %q failed", obj.Name),
		}
		s.mu.Unlock()
		s.setStatus("TRANSFORM_FAILED")
		return OverlayTransform{}, err
	}
	s.lastFailure = nil
	s.mu.Unlock()

	// Result is applied only if the object is still in the registry; a batch
	// that dropped it between call and return means state moved on.
	current, ok := s.registry.Lookup(obj.Name)
	if !ok {
		s.setStatus("TRANSFORM_STALE")
		return OverlayTransform{}, fmt.Errorf("object %q no longer detected", obj.Name)
	}

	t := OverlayTransform{
		ObjectName: current.Name,
		Style:      preset.ID,
		ImageData:  img.Data,
		MIMEType:   img.MIMEType,
		Box:        current.Box,
		Fidelity:   FidelityHighDef,
		CreatedAt:  time.Now(),
	}
	s.registry.PutTransform(t)
	s.setStatus("TRANSFORM_UPGRADED via " + img.UsedModel)
	return t, nil
}

// RetryUpgrade replays the last failed high-fidelity upgrade with its exact
// parameters. Retrying is always an explicit user action, never automatic.
func (s *Session) RetryUpgrade(ctx context.Context) (OverlayTransform, error) {
	s.mu.Lock()
	failed := s.lastFailure
	s.mu.Unlock()
	if failed == nil {
		return OverlayTransform{}, errors.New("no failed transform to retry")
	}
	return s.UpgradeStyle(ctx, failed.ObjectName, failed.Style)
}
