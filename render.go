package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// categoryColors maps object categories to box colors.
var categoryColors = map[ObjectCategory]color.RGBA{
	CategoryFurniture:   {0x8b, 0x5c, 0xf6, 0xff},
	CategoryLighting:    {0xf5, 0x9e, 0x0b, 0xff},
	CategoryDecor:       {0xec, 0x48, 0x99, 0xff},
	CategoryElectronics: {0x06, 0xb6, 0xd4, 0xff},
	CategoryStorage:     {0x22, 0xc5, 0x5e, 0xff},
	CategoryTextiles:    {0xf9, 0x73, 0x16, 0xff},
	CategoryPlants:      {0x10, 0xb9, 0x81, 0xff},
	CategoryTech:        {0x3b, 0x82, 0xf6, 0xff},
	CategoryOther:       {0x94, 0xa3, 0xb8, 0xff},
}

var (
	selectedColor  = color.RGBA{0xa7, 0x8b, 0xfa, 0xff}
	completedColor = color.RGBA{0x34, 0xd3, 0x99, 0xff}
	labelBack      = color.RGBA{0x00, 0x00, 0x00, 0xbf}
	labelText      = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Surface is a pixel buffer kept dimension-synced to its container. Resize
// is independent of redraw triggers: layout changes resize the surface,
// state changes redraw into it.
type Surface struct {
	img *image.RGBA
}

// NewSurface allocates a surface at the given pixel dimensions.
func NewSurface(w, h int) *Surface {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Resize reallocates the pixel buffer when the container dimensions change.
func (s *Surface) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if b := s.img.Bounds(); b.Dx() == w && b.Dy() == h {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Image exposes the current pixel buffer.
func (s *Surface) Image() *image.RGBA { return s.img }

// EncodePNG returns the surface contents as PNG bytes.
func (s *Surface) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderOverlay draws the registry snapshot onto the surface: transform
// images first, scaled into their boxes at preview opacity, then a labeled
// bounding box per object. The selected object gets a thicker solid box,
// objects that already carry a transform get the completed treatment, and
// everything else gets a dashed box in its category color. Pure function of
// the snapshot: same snapshot, same pixels.
func RenderOverlay(s *Surface, snap RegistrySnapshot) {
	img := s.img
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	draw.Draw(img, b, image.Transparent, image.Point{}, draw.Src)

	transformed := make(map[string]bool, len(snap.Transforms))
	for _, t := range snap.Transforms {
		transformed[t.ObjectName] = true
		drawTransform(img, t, w, h)
	}

	for _, obj := range snap.Objects {
		sel := snap.Selected != nil && snap.Selected.Name == obj.Name
		col := categoryColors[obj.Category]
		if col == (color.RGBA{}) {
			col = categoryColors[CategoryOther]
		}
		switch {
		case sel:
			col = selectedColor
		case transformed[obj.Name]:
			col = completedColor
		}

		rect := pixelRect(obj.Box, w, h)
		width := 2
		dashed := true
		if sel {
			width = 3
			dashed = false
		}
		if transformed[obj.Name] {
			dashed = false
		}
		strokeRect(img, rect, col, width, dashed)
		drawLabel(img, rect.Min.X, rect.Min.Y, strings.ToUpper(obj.Name), sel)
	}
}

// drawTransform decodes a transform image and scales it into its box with
// the preview opacity so it reads as an overlay, not a destructive edit.
func drawTransform(img *image.RGBA, t OverlayTransform, w, h int) {
	src, _, err := image.Decode(bytes.NewReader(t.ImageData))
	if err != nil {
		return
	}
	rect := pixelRect(t.Box, w, h)
	if rect.Empty() {
		return
	}

	scaled := image.NewRGBA(rect)
	xdraw.ApproxBiLinear.Scale(scaled, rect, src, src.Bounds(), xdraw.Src, nil)

	opacity := float64(OverlayOpacity)
	alpha := image.NewUniform(color.Alpha{A: uint8(opacity * 255)})
	draw.DrawMask(img, rect, scaled, rect.Min, alpha, image.Point{}, draw.Over)
}

// pixelRect maps a normalized box onto surface pixels.
func pixelRect(box BoundingBox, w, h int) image.Rectangle {
	return image.Rect(
		int(box.X1*float64(w)), int(box.Y1*float64(h)),
		int(box.X2*float64(w)), int(box.Y2*float64(h)),
	)
}

// strokeRect outlines a rectangle. Dashed boxes use a 6-on/3-off pattern.
func strokeRect(img *image.RGBA, r image.Rectangle, col color.RGBA, width int, dashed bool) {
	for i := 0; i < width; i++ {
		hline(img, r.Min.X, r.Max.X, r.Min.Y+i, col, dashed)
		hline(img, r.Min.X, r.Max.X, r.Max.Y-1-i, col, dashed)
		vline(img, r.Min.X+i, r.Min.Y, r.Max.Y, col, dashed)
		vline(img, r.Max.X-1-i, r.Min.Y, r.Max.Y, col, dashed)
	}
}

func hline(img *image.RGBA, x1, x2, y int, col color.RGBA, dashed bool) {
	for x := x1; x < x2; x++ {
		if dashed && (x-x1)%9 >= 6 {
			continue
		}
		if image.Pt(x, y).In(img.Bounds()) {
			img.SetRGBA(x, y, col)
		}
	}
}

func vline(img *image.RGBA, x, y1, y2 int, col color.RGBA, dashed bool) {
	for y := y1; y < y2; y++ {
		if dashed && (y-y1)%9 >= 6 {
			continue
		}
		if image.Pt(x, y).In(img.Bounds()) {
			img.SetRGBA(x, y, col)
		}
	}
}

// drawLabel draws the object name in a filled tag above the box corner.
func drawLabel(img *image.RGBA, x, y int, text string, selected bool) {
	face := basicfont.Face7x13
	tw := font.MeasureString(face, text).Ceil() + 10
	th := face.Metrics().Height.Ceil() + 6

	top := y - th
	if top < 0 {
		top = y
	}
	back := labelBack
	if selected {
		back = color.RGBA{0x8b, 0x5c, 0xf6, 0xe6}
	}
	draw.Draw(img, image.Rect(x, top, x+tw, top+th), image.NewUniform(back), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelText),
		Face: face,
		Dot:  fixed.P(x+5, top+face.Metrics().Ascent.Ceil()+2),
	}
	d.DrawString(text)
}
