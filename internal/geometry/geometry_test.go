package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBBox(t *testing.T) {
	t.Parallel()

	g, err := Parse(TypeBBox, []byte(`{"x":10,"y":20,"width":100,"height":50}`))
	require.NoError(t, err)
	box, ok := g.(BBox)
	require.True(t, ok)
	assert.Equal(t, 100.0, box.Width)
}

func TestParseRejectsNegativeBBox(t *testing.T) {
	t.Parallel()

	_, err := Parse(TypeBBox, []byte(`{"x":0,"y":0,"width":-5,"height":10}`))
	assert.Error(t, err)
}

func TestParsePolygonMinimumPoints(t *testing.T) {
	t.Parallel()

	_, err := Parse(TypePolygon, []byte(`{"points":[{"x":0,"y":0},{"x":1,"y":1}]}`))
	assert.Error(t, err, "two points do not make a polygon")

	_, err = Parse(TypePolygon, []byte(`{"points":[{"x":0,"y":0},{"x":1,"y":0},{"x":0,"y":1}]}`))
	assert.NoError(t, err)
}

func TestParseClassificationIgnoresPayload(t *testing.T) {
	t.Parallel()

	g, err := Parse(TypeClassification, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeClassification, g.Type())
}

func TestParseMissingGeometry(t *testing.T) {
	t.Parallel()

	_, err := Parse(TypeBBox, nil)
	assert.Error(t, err)
}

func TestParseUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Parse(AnnotationType("sphere"), []byte(`{}`))
	assert.Error(t, err)
}

func TestEqualIgnoresKeyOrder(t *testing.T) {
	t.Parallel()

	a := []byte(`{"x":1,"y":2,"width":3,"height":4}`)
	b := []byte(`{"height":4, "width":3, "y":2, "x":1}`)
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, []byte(`{"x":1,"y":2,"width":3,"height":5}`)))
}

func TestOpenVocabRequiresText(t *testing.T) {
	t.Parallel()

	_, err := Parse(TypeOpenVocab, []byte(`{"text":""}`))
	assert.Error(t, err)

	g, err := Parse(TypeOpenVocab, []byte(`{"text":"red bicycle","box":{"x":0,"y":0,"width":5,"height":5}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeOpenVocab, g.Type())
}
