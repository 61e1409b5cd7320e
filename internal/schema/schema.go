// Package schema declares the destination database shape and provides
// verification and provisioning against it.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// Destination property names. The reconciliation payloads and the
// provisioned schema must agree on these.
const (
	PropTitle        = "Title"
	PropCategory     = "Category"
	PropTags         = "Tags"
	PropSummary      = "Summary"
	PropExcerpt      = "Excerpt"
	PropMinsRead     = "Mins Read"
	PropImage        = "Image"
	PropR2ImageURL   = "R2ImageUrl"
	PropDateCreated  = "Date Created"
	PropStatus       = "Status"
	PropOriginalPage = "Original Page"
	PropPublished    = "Published"
)

// DefaultDatabaseName is the destination database title used for
// find-by-name lookups and provisioning.
const DefaultDatabaseName = "Knowledge Base"

// PropertyType is the destination property descriptor type tag.
type PropertyType string

// Supported property types.
const (
	TypeTitle       PropertyType = "title"
	TypeRichText    PropertyType = "rich_text"
	TypeSelect      PropertyType = "select"
	TypeMultiSelect PropertyType = "multi_select"
	TypeURL         PropertyType = "url"
	TypeDate        PropertyType = "date"
	TypeNumber      PropertyType = "number"
	TypeCheckbox    PropertyType = "checkbox"
)

// Property is a typed property descriptor.
type Property struct {
	Type    PropertyType `json:"type"`
	Options []string     `json:"options,omitempty"` // select/multi-select choices
}

// Schema is the declarative shape of the destination database.
type Schema struct {
	Name       string              `json:"name"`
	Properties map[string]Property `json:"properties"`
}

// Required returns the fixed destination schema. It is a constant shape,
// not user-configurable; an override file may replace (never merge) it.
func Required() *Schema {
	return &Schema{
		Name: DefaultDatabaseName,
		Properties: map[string]Property{
			PropTitle:        {Type: TypeTitle},
			PropCategory:     {Type: TypeSelect},
			PropTags:         {Type: TypeMultiSelect},
			PropSummary:      {Type: TypeRichText},
			PropExcerpt:      {Type: TypeRichText},
			PropMinsRead:     {Type: TypeNumber},
			PropImage:        {Type: TypeURL},
			PropR2ImageURL:   {Type: TypeURL},
			PropDateCreated:  {Type: TypeDate},
			PropStatus:       {Type: TypeSelect, Options: []string{"Draft", "Ready", "Review", "Published"}},
			PropOriginalPage: {Type: TypeURL},
			PropPublished:    {Type: TypeCheckbox},
		},
	}
}

// LoadFile loads a schema override from a JSON document. The override is
// consumed once at startup and used as-is: no merging with the built-in
// schema and no validation of its shape.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}

	return &s, nil
}

// APIProperties converts the declarative schema into the property payload
// the database-creation endpoint expects.
func (s *Schema) APIProperties() map[string]any {
	properties := make(map[string]any, len(s.Properties))

	for name, prop := range s.Properties {
		switch prop.Type {
		case TypeSelect, TypeMultiSelect:
			options := make([]map[string]any, 0, len(prop.Options))
			for _, option := range prop.Options {
				options = append(options, map[string]any{"name": option})
			}
			properties[name] = map[string]any{
				string(prop.Type): map[string]any{"options": options},
			}
		default:
			properties[name] = map[string]any{
				string(prop.Type): map[string]any{},
			}
		}
	}

	return properties
}
