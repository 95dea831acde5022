package gcsmock

// customKey is the top-level metadata key holding the free-form
// user-supplied key/value pairs, matching the "metadata" field of the Cloud
// Storage JSON API object resource.
const customKey = "metadata"

// Metadata is the structured metadata of a simulated object: arbitrary
// top-level attributes (contentType, cacheControl, ...) plus the free-form
// custom metadata sub-map under the "metadata" key.
type Metadata map[string]any

// defaultMetadata returns the metadata of a freshly constructed object:
// empty custom metadata and nothing else.
func defaultMetadata() Metadata {
	return Metadata{customKey: map[string]any{}}
}

// Custom returns the nested custom-metadata sub-map, or nil if it is absent
// or not a map.
func (m Metadata) Custom() map[string]any {
	custom, _ := m[customKey].(map[string]any)
	return custom
}

// clone returns a copy of m deep enough that mutating the result (including
// its custom sub-map) does not affect m. Values other than the custom
// sub-map are copied shallowly.
func (m Metadata) clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies nested string-keyed maps so stored metadata never
// aliases caller-owned maps.
func cloneValue(v any) any {
	if sub, ok := v.(map[string]any); ok {
		cp := make(map[string]any, len(sub))
		for k, val := range sub {
			cp[k] = cloneValue(val)
		}
		return cp
	}
	return v
}

// merge applies the SetMetadata merge rule: top-level keys of update
// shallow-overwrite those of m, except the custom sub-map, which is merged
// key-by-key (keys present only in m's sub-map are preserved). Neither input
// is mutated; the result is freshly allocated.
func (m Metadata) merge(update Metadata) Metadata {
	out := m.clone()
	if out == nil {
		out = Metadata{}
	}
	for k, v := range update {
		if k == customKey {
			newCustom, newOK := v.(map[string]any)
			oldCustom, oldOK := out[customKey].(map[string]any)
			if newOK && oldOK {
				for ck, cv := range newCustom {
					oldCustom[ck] = cloneValue(cv)
				}
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

// overlay applies the Copy merge rule: a plain shallow top-level overwrite
// with no special handling of the custom sub-map. Neither input is mutated.
func (m Metadata) overlay(update Metadata) Metadata {
	out := m.clone()
	if out == nil {
		out = Metadata{}
	}
	for k, v := range update {
		out[k] = cloneValue(v)
	}
	return out
}
