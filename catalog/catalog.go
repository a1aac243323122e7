// Package catalog holds the versioned item templates for each discovery
// document type and the predicates that gate them.
package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"discoverydraft-backend/models"
	"discoverydraft-backend/taxonomy"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

var defaultFiles = map[models.DocumentType]string{
	models.DocSROGs:      "templates/srogs.yaml",
	models.DocPODs:       "templates/pods.yaml",
	models.DocAdmissions: "templates/admissions.yaml",
}

// TemplateItem is one numbered entry in a document template
type TemplateItem struct {
	ID   string     `yaml:"id"`
	Text string     `yaml:"text"`
	When *Predicate `yaml:"when,omitempty"`
}

// Eligible reports whether the item is included for flags. Items without a
// predicate are always included.
func (i TemplateItem) Eligible(flags models.Flags) bool {
	if i.When == nil {
		return true
	}
	return i.When.Eval(flags)
}

// Template is the canonical ordered item list for one document type
type Template struct {
	Type    models.DocumentType `yaml:"type"`
	Version string              `yaml:"version"`
	Items   []TemplateItem      `yaml:"items"`
}

// TextData is the substitution data available to item text
type TextData struct {
	CaseNumber string
	Plaintiff  string
	Plaintiffs string
	Defendant  string
	Property   string
}

// Catalog is an immutable, validated set of templates
type Catalog struct {
	templates map[models.DocumentType]Template
	texts     map[string]*template.Template
}

// Default loads the embedded templates and validates them against reg
func Default(reg *taxonomy.Registry) (*Catalog, error) {
	templates := make([]Template, 0, len(defaultFiles))
	for _, docType := range models.DocumentTypes {
		data, err := templateFS.ReadFile(defaultFiles[docType])
		if err != nil {
			return nil, fmt.Errorf("read %s template: %w", docType, err)
		}
		tmpl, err := ParseTemplate(data)
		if err != nil {
			return nil, fmt.Errorf("%s template: %w", docType, err)
		}
		if tmpl.Type != docType {
			return nil, fmt.Errorf("%s: declares type %q", defaultFiles[docType], tmpl.Type)
		}
		templates = append(templates, tmpl)
	}
	return New(reg, templates...)
}

// ParseTemplate decodes a YAML template document
func ParseTemplate(data []byte) (Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}

// New validates templates against the registry. Every referenced flag must
// exist, item ids must be unique per type and item text must render.
func New(reg *taxonomy.Registry, templates ...Template) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[models.DocumentType]Template, len(templates)),
		texts:     make(map[string]*template.Template),
	}
	sample := TextData{
		CaseNumber: "00000", Plaintiff: "P", Plaintiffs: "P", Defendant: "D", Property: "A",
	}

	for _, t := range templates {
		docType, err := models.ParseDocumentType(string(t.Type))
		if err != nil {
			return nil, err
		}
		t.Type = docType
		if _, dup := c.templates[t.Type]; dup {
			return nil, fmt.Errorf("duplicate template for %s", t.Type)
		}

		seen := make(map[string]bool, len(t.Items))
		for _, item := range t.Items {
			if item.ID == "" {
				return nil, fmt.Errorf("%s: item without id", t.Type)
			}
			if seen[item.ID] {
				return nil, fmt.Errorf("%s: duplicate item id %s", t.Type, item.ID)
			}
			seen[item.ID] = true

			if item.When != nil {
				if err := item.When.Validate(); err != nil {
					return nil, fmt.Errorf("%s %s: %w", t.Type, item.ID, err)
				}
				for _, name := range item.When.Flags() {
					if !reg.IsFlag(name) {
						return nil, fmt.Errorf("%s %s: unknown flag %q", t.Type, item.ID, name)
					}
				}
			}

			text, err := template.New(item.ID).Option("missingkey=error").Parse(item.Text)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", t.Type, item.ID, err)
			}
			if err := text.Execute(&bytes.Buffer{}, sample); err != nil {
				return nil, fmt.Errorf("%s %s: %w", t.Type, item.ID, err)
			}
			c.texts[textKey(t.Type, item.ID)] = text
		}
		c.templates[t.Type] = t
	}

	for _, docType := range models.DocumentTypes {
		if _, ok := c.templates[docType]; !ok {
			c.templates[docType] = Template{Type: docType, Items: []TemplateItem{}}
		}
	}
	return c, nil
}

// Template returns the template for a document type
func (c *Catalog) Template(docType models.DocumentType) Template {
	return c.templates[docType]
}

// Version returns the versions of each template, keyed by type
func (c *Catalog) Version() map[models.DocumentType]string {
	out := make(map[models.DocumentType]string, len(c.templates))
	for t, tmpl := range c.templates {
		out[t] = tmpl.Version
	}
	return out
}

// RenderText substitutes caption data into an item's text
func (c *Catalog) RenderText(docType models.DocumentType, itemID string, data TextData) (string, error) {
	text, ok := c.texts[textKey(docType, itemID)]
	if !ok {
		return "", fmt.Errorf("%s: unknown item %s", docType, itemID)
	}
	var buf bytes.Buffer
	if err := text.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%s %s: %w", docType, itemID, err)
	}
	return buf.String(), nil
}

func textKey(docType models.DocumentType, itemID string) string {
	return string(docType) + "/" + itemID
}
