// Package imaging carries the coordinate contract shared by the detection
// and classification stages. The inference service works on a resized and
// center-padded copy of the original photo (the "working image"); regions
// are edited in working-image pixel space and persisted in original-image
// pixel space, so the forward and inverse transforms here must round-trip
// exactly modulo rounding.
package imaging

import "math"

// Rect is an axis-aligned rectangle in integer pixel space.
type Rect struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Valid reports whether the rectangle has positive area.
func (r Rect) Valid() bool {
	return r.XMin < r.XMax && r.YMin < r.YMax
}

func (r Rect) Width() int  { return r.XMax - r.XMin }
func (r Rect) Height() int { return r.YMax - r.YMin }

// Clamp restricts the rectangle to a width x height image.
func (r Rect) Clamp(width, height int) Rect {
	clamped := Rect{
		XMin: clampInt(r.XMin, 0, width),
		YMin: clampInt(r.YMin, 0, height),
		XMax: clampInt(r.XMax, 0, width),
		YMax: clampInt(r.YMax, 0, height),
	}
	return clamped
}

// FRect is a rectangle with sub-pixel precision, used for working-image
// coordinates so the inverse transform loses nothing but the final rounding.
type FRect struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Round converts to integer pixels, rounding half away from zero.
func (r FRect) Round() Rect {
	return Rect{
		XMin: int(math.Round(r.XMin)),
		YMin: int(math.Round(r.YMin)),
		XMax: int(math.Round(r.XMax)),
		YMax: int(math.Round(r.YMax)),
	}
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Offset is a padding displacement in pixels.
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ResizeMeta describes how the original image was mapped onto the working
// image: scaled by ScaleFactor, then centered inside FinalSize with Padding.
// The field layout matches the detection response of the inference service.
type ResizeMeta struct {
	OriginalSize Dimensions `json:"original_size"`
	ResizedSize  Dimensions `json:"resized_size"`
	FinalSize    Dimensions `json:"final_size"`
	Padding      Offset     `json:"padding"`
	ScaleFactor  float64    `json:"scale_factor"`
}

// ToWorking maps a rectangle from original-image space into working-image
// space. The result keeps sub-pixel precision; callers round only for
// display.
func (m ResizeMeta) ToWorking(r Rect) FRect {
	return FRect{
		XMin: float64(r.XMin)*m.ScaleFactor + float64(m.Padding.X),
		YMin: float64(r.YMin)*m.ScaleFactor + float64(m.Padding.Y),
		XMax: float64(r.XMax)*m.ScaleFactor + float64(m.Padding.X),
		YMax: float64(r.YMax)*m.ScaleFactor + float64(m.Padding.Y),
	}
}

// ToOriginal inverts ToWorking, mapping working-image coordinates back into
// original-image space.
func (m ResizeMeta) ToOriginal(r FRect) Rect {
	return FRect{
		XMin: (r.XMin - float64(m.Padding.X)) / m.ScaleFactor,
		YMin: (r.YMin - float64(m.Padding.Y)) / m.ScaleFactor,
		XMax: (r.XMax - float64(m.Padding.X)) / m.ScaleFactor,
		YMax: (r.YMax - float64(m.Padding.Y)) / m.ScaleFactor,
	}.Round()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
