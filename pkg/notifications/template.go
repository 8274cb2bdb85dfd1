package notifications

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Template is reusable notification content with {{variable}} placeholders.
type Template struct {
	ID             string    `json:"id" yaml:"id"`
	OrganizationID string    `json:"organization_id" yaml:"organization_id"`
	Name           string    `json:"name" yaml:"name"`
	Channel        Channel   `json:"channel" yaml:"channel"`
	Subject        string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Body           string    `json:"body" yaml:"body"`
	Variables      []string  `json:"variables,omitempty" yaml:"variables,omitempty"`
	Active         bool      `json:"active" yaml:"active"`
	CreatedBy      string    `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// Render replaces every literal {{key}} in tpl with its value in a single
// pass, so substituted values are never expanded again. Keys match exactly;
// placeholders without a value are left untouched.
func Render(tpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// RenderTitle renders the subject, falling back to the template name.
func (t Template) RenderTitle(vars map[string]string) string {
	if t.Subject != "" {
		return Render(t.Subject, vars)
	}
	return Render(t.Name, vars)
}

// RenderBody renders the template body.
func (t Template) RenderBody(vars map[string]string) string {
	return Render(t.Body, vars)
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates decodes a YAML seed file of the form:
//
//	templates:
//	  - id: welcome
//	    name: Welcome
//	    channel: email
//	    subject: "Hi {{name}}"
//	    body: "Welcome aboard, {{name}}!"
//	    active: true
func LoadTemplates(r io.Reader) ([]Template, error) {
	var f templateFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplateFile, err)
	}
	for i, t := range f.Templates {
		if t.ID == "" || t.Body == "" {
			return nil, fmt.Errorf("%w: template #%d requires id and body", ErrInvalidTemplateFile, i)
		}
		if !t.Channel.Valid() {
			return nil, fmt.Errorf("%w: template %q has unknown channel %q", ErrInvalidTemplateFile, t.ID, t.Channel)
		}
	}
	return f.Templates, nil
}
