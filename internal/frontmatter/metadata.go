package frontmatter

import (
	"fmt"
	"sort"
	"time"
)

// Recognized front matter field names. Everything else passes through as an
// opaque string in Extra.
const (
	FieldTitle   = "title"
	FieldDate    = "date"
	FieldTags    = "tags"
	FieldDraft   = "draft"
	FieldRelated = "related"
	FieldSeries  = "series"
)

// Accepted date layouts, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// FieldWarning records a recognized field whose value could not be coerced.
// The field is omitted from the Metadata; the unit itself is still usable.
type FieldWarning struct {
	Field  string
	Reason string
}

// Metadata is the decoded front matter of one content unit.
type Metadata struct {
	Title   string
	Date    time.Time
	HasDate bool
	Tags    []string
	Draft   bool
	Related []string
	Series  string

	// Extra holds unrecognized fields, stringified, passed through unchanged.
	Extra map[string]string

	Warnings []FieldWarning
}

// NewMetadata returns an empty Metadata with Extra initialized.
func NewMetadata() Metadata {
	return Metadata{Extra: map[string]string{}}
}

func decodeFields(fields map[string]any) Metadata {
	md := NewMetadata()

	// Deterministic decode order keeps warning order stable.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := fields[key]
		switch key {
		case FieldTitle:
			md.Title = stringify(value)
		case FieldDate:
			t, err := coerceDate(value)
			if err != nil {
				md.Warnings = append(md.Warnings, FieldWarning{Field: FieldDate, Reason: err.Error()})
				continue
			}
			md.Date = t
			md.HasDate = true
		case FieldTags:
			tags, err := coerceStringList(value)
			if err != nil {
				md.Warnings = append(md.Warnings, FieldWarning{Field: FieldTags, Reason: err.Error()})
				continue
			}
			md.Tags = tags
		case FieldDraft:
			b, err := coerceBool(value)
			if err != nil {
				md.Warnings = append(md.Warnings, FieldWarning{Field: FieldDraft, Reason: err.Error()})
				continue
			}
			md.Draft = b
		case FieldRelated:
			related, err := coerceStringList(value)
			if err != nil {
				md.Warnings = append(md.Warnings, FieldWarning{Field: FieldRelated, Reason: err.Error()})
				continue
			}
			md.Related = related
		case FieldSeries:
			md.Series = stringify(value)
		default:
			md.Extra[key] = stringify(value)
		}
	}
	return md
}

func coerceDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		// yaml.v3 decodes ISO timestamps natively.
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", v)
	default:
		return time.Time{}, fmt.Errorf("date has unexpected type %T", value)
	}
}

// coerceStringList accepts a list of scalars or a bare scalar (promoted to a
// single-element list), matching common blog front matter practice.
func coerceStringList(value any) ([]string, error) {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case int, int64, float64, bool:
				out = append(out, stringify(s))
			default:
				return nil, fmt.Errorf("list element has unexpected type %T", item)
			}
		}
		return out, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", value)
	}
}

func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true", "yes":
			return true, nil
		case "false", "no":
			return false, nil
		}
		return false, fmt.Errorf("unparseable boolean %q", v)
	default:
		return false, fmt.Errorf("boolean has unexpected type %T", value)
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
