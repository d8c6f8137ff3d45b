package tools

import "encoding/json"

// ParameterSchema describes the arguments an operation accepts using JSON Schema
type ParameterSchema struct {
	Type       string                    `json:"type"` // Always "object" for operation arguments
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// PropertySchema describes a single argument
type PropertySchema struct {
	Type        string      `json:"type"` // "string", "integer", "number", "boolean"
	Description string      `json:"description"`
	Enum        []string    `json:"enum,omitempty"`
	Format      string      `json:"format,omitempty"`
	Pattern     string      `json:"pattern,omitempty"`
	MinLength   *int        `json:"minLength,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// NewParameterSchema creates a new empty parameter schema
func NewParameterSchema() ParameterSchema {
	return ParameterSchema{
		Type:       "object",
		Properties: make(map[string]PropertySchema),
		Required:   []string{},
	}
}

// AddProperty adds a property to the schema
func (p *ParameterSchema) AddProperty(name string, prop PropertySchema, required bool) {
	p.Properties[name] = prop
	if required {
		p.Required = append(p.Required, name)
	}
}

// IsRequired reports whether name is a required argument
func (p ParameterSchema) IsRequired(name string) bool {
	for _, r := range p.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Map renders the schema as a generic JSON object
func (p ParameterSchema) Map() map[string]interface{} {
	data, err := json.Marshal(p)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	return out
}

// StringProperty creates a string property schema
func StringProperty(description string) PropertySchema {
	return PropertySchema{
		Type:        "string",
		Description: description,
	}
}

// NonEmptyStringProperty creates a string property that rejects ""
func NonEmptyStringProperty(description string) PropertySchema {
	one := 1
	return PropertySchema{
		Type:        "string",
		Description: description,
		MinLength:   &one,
	}
}

// DateProperty creates a YYYY-MM-DD string property
func DateProperty(description string) PropertySchema {
	return PropertySchema{
		Type:        "string",
		Description: description,
		Pattern:     `^\d{4}-\d{2}-\d{2}$`,
	}
}

// StringEnumProperty creates a string property with allowed values
func StringEnumProperty(description string, def string, values ...string) PropertySchema {
	prop := PropertySchema{
		Type:        "string",
		Description: description,
		Enum:        values,
	}
	if def != "" {
		prop.Default = def
	}
	return prop
}

// IntegerProperty creates an integer property schema
func IntegerProperty(description string) PropertySchema {
	return PropertySchema{
		Type:        "integer",
		Description: description,
	}
}
