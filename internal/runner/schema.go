package runner

// Property describes a single configuration field.
type Property struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Default any    `json:"default,omitempty"`
}

// ConfigurationSchema is the static description of a runner's settings.
type ConfigurationSchema struct {
	Type         string              `json:"type"`
	Properties   map[string]Property `json:"properties"`
	Order        []string            `json:"order,omitempty"`
	Required     []string            `json:"required,omitempty"`
	ExtraOptions []string            `json:"extra_options,omitempty"`
	Secret       []string            `json:"secret,omitempty"`
}

// IsSecret reports whether field must be kept out of plain-text storage.
func (s ConfigurationSchema) IsSecret(field string) bool {
	return contains(s.Secret, field)
}

// IsRequired reports whether field must be supplied.
func (s ConfigurationSchema) IsRequired(field string) bool {
	return contains(s.Required, field)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
