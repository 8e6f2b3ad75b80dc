package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptFuncs = template.FuncMap{
	"percent": func(v float64) float64 { return v * 100 },
}

// prompts holds the parsed templates for every role.
type prompts struct {
	content *template.Template
	notes   *template.Template
	profile *template.Template
}

func loadPrompts() (*prompts, error) {
	parse := func(name string) (*template.Template, error) {
		t, err := template.New(name).Funcs(promptFuncs).ParseFS(promptFS, "prompts/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
		}
		return t, nil
	}

	var p prompts
	var err error
	if p.content, err = parse("content.tmpl"); err != nil {
		return nil, err
	}
	if p.notes, err = parse("notes.tmpl"); err != nil {
		return nil, err
	}
	if p.profile, err = parse("profile.tmpl"); err != nil {
		return nil, err
	}
	return &p, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
