package prompts

import (
	"github.com/prism-bi/prism-gateway/pkg/metadata"
)

// MeasureInfo describes one measure in the rendered schema.
type MeasureInfo struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// DimensionInfo describes one dimension in the rendered schema.
type DimensionInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// CubeSchema is the per-cube entry sent to the model. Time-typed
// dimensions are kept out of Dimensions and live in TimeDimensions only.
type CubeSchema struct {
	Title          string                   `json:"title,omitempty"`
	Description    string                   `json:"description,omitempty"`
	Measures       map[string]MeasureInfo   `json:"measures"`
	Dimensions     map[string]DimensionInfo `json:"dimensions"`
	TimeDimensions map[string]DimensionInfo `json:"timeDimensions"`
}

// SchemaDescription is the request-scoped rendering of all registered
// cubes. Built fresh per request; never cached here.
type SchemaDescription struct {
	Cubes map[string]CubeSchema `json:"cubes"`
}

// FormatSchema renders live cube metadata into the compact form the prompt
// template interpolates. Dimensions whose type is "time" are moved into the
// cube's timeDimensions bucket.
func FormatSchema(cubes []metadata.Cube) *SchemaDescription {
	desc := &SchemaDescription{Cubes: make(map[string]CubeSchema, len(cubes))}

	for _, cube := range cubes {
		entry := CubeSchema{
			Title:          cube.Title,
			Description:    cube.Description,
			Measures:       make(map[string]MeasureInfo, len(cube.Measures)),
			Dimensions:     make(map[string]DimensionInfo),
			TimeDimensions: make(map[string]DimensionInfo),
		}

		for _, m := range cube.Measures {
			entry.Measures[m.Name] = MeasureInfo{
				Type:        m.Type,
				Title:       m.Title,
				Description: m.Description,
			}
		}

		for _, d := range cube.Dimensions {
			info := DimensionInfo{
				Name:        d.Name,
				Type:        d.Type,
				Title:       d.Title,
				Description: d.Description,
			}
			if d.Type == "time" {
				entry.TimeDimensions[d.Name] = info
			} else {
				entry.Dimensions[d.Name] = info
			}
		}

		desc.Cubes[cube.Name] = entry
	}

	return desc
}

// FallbackSchema is the minimal hard-coded schema used when live metadata
// retrieval fails. Generation proceeds with degraded schema knowledge
// rather than failing the whole request.
func FallbackSchema() *SchemaDescription {
	return FormatSchema([]metadata.Cube{
		{
			Name:  "Orders",
			Title: "Orders",
			Measures: []metadata.Field{
				{Name: "Orders.count", Type: "count", Title: "Order Count"},
			},
			Dimensions: []metadata.Field{
				{Name: "Orders.status", Type: "string", Title: "Status"},
				{Name: "Orders.createdAt", Type: "time", Title: "Created At"},
			},
		},
	})
}
