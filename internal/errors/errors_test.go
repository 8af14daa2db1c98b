package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancedErrorUnwrap(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("optimistic lock conflict")
	wrapped := New(fmt.Errorf("updating annotation 42: %w", sentinel)).
		Component("datastore").
		Category(CategoryConflict).
		Context("annotation_id", 42).
		Build()

	assert.True(t, Is(wrapped, sentinel), "enhanced error should match wrapped sentinel")
	assert.Equal(t, "conflict", wrapped.GetCategory())
}

func TestEnhancedErrorCategoryMatching(t *testing.T) {
	t.Parallel()

	a := Newf("version mismatch").Category(CategoryConflict).Build()
	b := Newf("duplicate version number").Category(CategoryConflict).Build()
	c := Newf("unknown version").Category(CategoryNotFound).Build()

	assert.True(t, Is(a, b), "same category should match")
	assert.False(t, Is(a, c), "different category should not match")
}

func TestContextIsCopied(t *testing.T) {
	t.Parallel()

	ee := Newf("boom").Context("project_id", 1).Build()
	ctx := ee.GetContext()
	require.NotNil(t, ctx)
	ctx["project_id"] = 999

	assert.Equal(t, 1, ee.GetContext()["project_id"], "mutating the returned map must not affect the error")
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := Newf("plain").Build()
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.False(t, ee.Timestamp.IsZero())
}
