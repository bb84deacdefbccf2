// internal/domain/incident/labels.go

package incident

import "sort"

// LabelOther is the catch-all category. It maps to an empty glyph.
const LabelOther = "other"

// LabelTable maps the closed set of label identifiers to display glyphs
type LabelTable map[string]string

// DefaultLabels returns the built-in label table
func DefaultLabels() LabelTable {
	return LabelTable{
		LabelOther:        "",
		"police_presence": "👮",
		"units_requested": "🚓",
		"fire":            "🔥",
		"prisoner_van":    "🚐",
		"group":           "🚩",
		"injury":          "🩹",
		"barricade":       "🚧",
	}
}

// Lookup resolves a label. Absent and unknown labels report ok=false and
// are treated the same way by every caller.
func (t LabelTable) Lookup(label string) (glyph string, ok bool) {
	if label == "" {
		return "", false
	}
	glyph, ok = t[label]
	return glyph, ok
}

// Names returns the label identifiers in sorted order
func (t LabelTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
