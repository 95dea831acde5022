package gcsmock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataCustom(t *testing.T) {
	require.Nil(t, Metadata{}.Custom())
	require.Nil(t, Metadata{"metadata": "not a map"}.Custom())
	require.Equal(t, map[string]any{"a": 1}, Metadata{"metadata": map[string]any{"a": 1}}.Custom())
}

func TestMetadataMergeNonMapCustomOverwrites(t *testing.T) {
	base := Metadata{"metadata": map[string]any{"a": 1}}

	// When the update's "metadata" value is not a map, it overwrites like
	// any other top-level key.
	out := base.merge(Metadata{"metadata": "scalar"})
	require.Equal(t, "scalar", out["metadata"])

	// The original is never mutated.
	require.Equal(t, map[string]any{"a": 1}, base.Custom())
}

func TestMetadataMergeDoesNotAliasInputs(t *testing.T) {
	base := Metadata{"metadata": map[string]any{"a": 1}}
	update := Metadata{"metadata": map[string]any{"b": map[string]any{"deep": true}}}

	out := base.merge(update)
	require.Equal(t, map[string]any{"a": 1, "b": map[string]any{"deep": true}}, out.Custom())

	// Mutating the merged result must not leak into the inputs.
	out.Custom()["a"] = 99
	out.Custom()["b"].(map[string]any)["deep"] = false
	require.Equal(t, map[string]any{"a": 1}, base.Custom())
	require.Equal(t, true, update.Custom()["b"].(map[string]any)["deep"])
}

func TestMetadataOverlayIsShallow(t *testing.T) {
	base := Metadata{
		"foo":      "bar",
		"metadata": map[string]any{"a": 1},
	}
	out := base.overlay(Metadata{"metadata": map[string]any{"b": 2}})

	require.Equal(t, "bar", out["foo"])
	require.Equal(t, map[string]any{"b": 2}, out.Custom(), "overlay replaces the custom sub-map wholesale")
	require.Equal(t, map[string]any{"a": 1}, base.Custom())
}
