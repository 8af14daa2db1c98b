// Package geometry models annotation geometry as an explicit tagged variant
// type, one case per annotation type. Geometry is persisted as an opaque
// JSON blob and parsed once at the boundaries that interpret it (validation,
// diffing, export).
package geometry

import (
	"encoding/json"
	"fmt"
)

// AnnotationType identifies which geometry variant an annotation carries.
type AnnotationType string

const (
	TypeClassification AnnotationType = "classification"
	TypeBBox           AnnotationType = "bbox"
	TypeRotatedBBox    AnnotationType = "rotated_bbox"
	TypePolygon        AnnotationType = "polygon"
	TypeLine           AnnotationType = "line"
	TypeOpenVocab      AnnotationType = "open_vocab"
)

// Valid reports whether t is a known annotation type.
func (t AnnotationType) Valid() bool {
	switch t {
	case TypeClassification, TypeBBox, TypeRotatedBBox, TypePolygon, TypeLine, TypeOpenVocab:
		return true
	}
	return false
}

// Point is a single 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry is the tagged union over all annotation geometry variants.
type Geometry interface {
	Type() AnnotationType
	Validate() error
}

// Classification has no spatial extent; it labels the whole image.
type Classification struct{}

func (Classification) Type() AnnotationType { return TypeClassification }
func (Classification) Validate() error      { return nil }

// BBox is an axis-aligned bounding box.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (BBox) Type() AnnotationType { return TypeBBox }

func (b BBox) Validate() error {
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("bbox dimensions must not be negative: width=%v height=%v", b.Width, b.Height)
	}
	return nil
}

// RotatedBBox is a bounding box with a rotation angle in degrees.
type RotatedBBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
}

func (RotatedBBox) Type() AnnotationType { return TypeRotatedBBox }

func (r RotatedBBox) Validate() error {
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("rotated bbox dimensions must not be negative: width=%v height=%v", r.Width, r.Height)
	}
	return nil
}

// Polygon is a closed region described by its vertices.
type Polygon struct {
	Points []Point `json:"points"`
}

func (Polygon) Type() AnnotationType { return TypePolygon }

func (p Polygon) Validate() error {
	if len(p.Points) < 3 {
		return fmt.Errorf("polygon requires at least 3 points, got %d", len(p.Points))
	}
	return nil
}

// Line is an open polyline.
type Line struct {
	Points []Point `json:"points"`
}

func (Line) Type() AnnotationType { return TypeLine }

func (l Line) Validate() error {
	if len(l.Points) < 2 {
		return fmt.Errorf("line requires at least 2 points, got %d", len(l.Points))
	}
	return nil
}

// OpenVocab is a free-text label, optionally grounded by a bounding box.
type OpenVocab struct {
	Text string `json:"text"`
	Box  *BBox  `json:"box,omitempty"`
}

func (OpenVocab) Type() AnnotationType { return TypeOpenVocab }

func (o OpenVocab) Validate() error {
	if o.Text == "" {
		return fmt.Errorf("open_vocab annotation requires text")
	}
	if o.Box != nil {
		return o.Box.Validate()
	}
	return nil
}

// Parse decodes raw JSON geometry into the variant matching annotationType
// and validates it. An empty raw payload is allowed only for classification.
func Parse(annotationType AnnotationType, raw []byte) (Geometry, error) {
	if !annotationType.Valid() {
		return nil, fmt.Errorf("unknown annotation type %q", annotationType)
	}

	if annotationType == TypeClassification {
		// Classification carries no geometry, any payload is ignored.
		return Classification{}, nil
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("annotation type %q requires geometry", annotationType)
	}

	var g Geometry
	var err error
	switch annotationType {
	case TypeBBox:
		var v BBox
		err = json.Unmarshal(raw, &v)
		g = v
	case TypeRotatedBBox:
		var v RotatedBBox
		err = json.Unmarshal(raw, &v)
		g = v
	case TypePolygon:
		var v Polygon
		err = json.Unmarshal(raw, &v)
		g = v
	case TypeLine:
		var v Line
		err = json.Unmarshal(raw, &v)
		g = v
	case TypeOpenVocab:
		var v OpenVocab
		err = json.Unmarshal(raw, &v)
		g = v
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s geometry: %w", annotationType, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Equal compares two raw geometry payloads structurally, ignoring JSON key
// order and whitespace. Invalid JSON on either side compares as bytes.
func Equal(a, b []byte) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return string(a) == string(b)
	}
	an, _ := json.Marshal(av)
	bn, _ := json.Marshal(bv)
	return string(an) == string(bn)
}
