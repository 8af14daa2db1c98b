// Package export serializes frozen annotation snapshots into external
// dataset formats at publish time. The version publisher is agnostic to the
// target schema; it hands over snapshots plus image metadata and receives a
// byte blob.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/datastore"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
)

// ImageMeta is the platform-side metadata a serializer needs per image.
type ImageMeta struct {
	ID       uint
	FileName string
	Width    int
	Height   int
}

// Request bundles everything a serializer receives for one publish.
type Request struct {
	Version   *datastore.AnnotationVersion
	Snapshots []datastore.AnnotationSnapshot
	Images    []ImageMeta
}

// Serializer converts a snapshot set into one export artifact.
type Serializer interface {
	Format() string
	Serialize(req *Request) ([]byte, error)
}

// registry of available serializers, keyed by format name.
var registry = map[string]Serializer{}

// Register adds a serializer to the registry. Later registrations for the
// same format win, which lets tests install fakes.
func Register(s Serializer) {
	registry[s.Format()] = s
}

// Get returns the serializer for a format. Unknown formats are a
// validation error, surfaced before any version row is written.
func Get(format string) (Serializer, error) {
	s, ok := registry[format]
	if !ok {
		return nil, errors.Newf("unknown export format %q", format).
			Component("export").
			Category(errors.CategoryValidation).
			Build()
	}
	return s, nil
}

func init() {
	Register(&cocoSerializer{})
}

// cocoSerializer emits a COCO-style JSON document: images, annotations and
// categories arrays keyed by numeric IDs.
type cocoSerializer struct{}

func (*cocoSerializer) Format() string { return "coco-json" }

type cocoDocument struct {
	Info        cocoInfo         `json:"info"`
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

type cocoInfo struct {
	Description string `json:"description"`
	Version     string `json:"version"`
}

type cocoImage struct {
	ID       uint   `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoAnnotation struct {
	ID         uint            `json:"id"`
	ImageID    uint            `json:"image_id"`
	CategoryID int             `json:"category_id"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	Confidence *int            `json:"confidence,omitempty"`
	State      string          `json:"state"`
}

type cocoCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (*cocoSerializer) Serialize(req *Request) ([]byte, error) {
	doc := cocoDocument{
		Info: cocoInfo{
			Description: req.Version.Description,
			Version:     req.Version.VersionNumber,
		},
		Images:      make([]cocoImage, 0, len(req.Images)),
		Annotations: make([]cocoAnnotation, 0, len(req.Snapshots)),
		Categories:  []cocoCategory{},
	}

	for _, img := range req.Images {
		doc.Images = append(doc.Images, cocoImage{
			ID:       img.ID,
			FileName: img.FileName,
			Width:    img.Width,
			Height:   img.Height,
		})
	}

	categoryIDs := map[string]int{}
	for i := range req.Snapshots {
		var a datastore.Annotation
		if err := json.Unmarshal([]byte(req.Snapshots[i].SnapshotData), &a); err != nil {
			return nil, fmt.Errorf("decoding snapshot for annotation %d: %w", req.Snapshots[i].AnnotationID, err)
		}

		catID, ok := categoryIDs[a.ClassName]
		if !ok {
			catID = len(categoryIDs) + 1
			categoryIDs[a.ClassName] = catID
			doc.Categories = append(doc.Categories, cocoCategory{ID: catID, Name: a.ClassName})
		}

		ca := cocoAnnotation{
			ID:         req.Snapshots[i].AnnotationID,
			ImageID:    req.Snapshots[i].ImageID,
			CategoryID: catID,
			Confidence: a.Confidence,
			State:      string(a.AnnotationState),
		}
		if a.Geometry != "" {
			ca.Geometry = json.RawMessage(a.Geometry)
		}
		if a.Attributes != "" {
			ca.Attributes = json.RawMessage(a.Attributes)
		}
		doc.Annotations = append(doc.Annotations, ca)
	}

	return json.MarshalIndent(doc, "", "  ")
}
