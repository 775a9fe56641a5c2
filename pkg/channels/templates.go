package channels

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"strings"
	"sync"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"
)

// TemplateSource is the raw form of one email template. Subject is plain
// text; Body is HTML and gets contextual escaping.
type TemplateSource struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiledTemplate struct {
	subject *texttemplate.Template
	body    *htmltemplate.Template
}

// Templates renders email subjects and bodies by template id. Referencing a
// key absent from the data fails the render.
type Templates struct {
	mu  sync.RWMutex
	set map[string]compiledTemplate
}

func NewTemplates() *Templates {
	return &Templates{set: make(map[string]compiledTemplate)}
}

// Add compiles and registers a template, replacing any previous one.
func (t *Templates) Add(id string, src TemplateSource) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	subject, err := texttemplate.New(id).Option("missingkey=error").Parse(src.Subject)
	if err != nil {
		return errors.Join(ErrInvalidTemplate, err)
	}
	body, err := htmltemplate.New(id).Option("missingkey=error").Parse(src.Body)
	if err != nil {
		return errors.Join(ErrInvalidTemplate, err)
	}

	t.mu.Lock()
	t.set[id] = compiledTemplate{subject: subject, body: body}
	t.mu.Unlock()
	return nil
}

// Render executes template id with data.
func (t *Templates) Render(id string, data map[string]any) (subject, body string, err error) {
	t.mu.RLock()
	tpl, ok := t.set[id]
	t.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}

	var sb, bb bytes.Buffer
	if err := tpl.subject.Execute(&sb, data); err != nil {
		return "", "", errors.Join(ErrInvalidTemplate, err)
	}
	if err := tpl.body.Execute(&bb, data); err != nil {
		return "", "", errors.Join(ErrInvalidTemplate, err)
	}
	return strings.TrimSpace(sb.String()), bb.String(), nil
}

// LoadTemplates reads a YAML map of template id to TemplateSource.
func LoadTemplates(r io.Reader) (*Templates, error) {
	var raw map[string]TemplateSource
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidTemplate, err)
	}

	t := NewTemplates()
	for id, src := range raw {
		if err := t.Add(id, src); err != nil {
			return nil, fmt.Errorf("template %q: %w", id, err)
		}
	}
	return t, nil
}

func LoadTemplatesFile(path string) (*Templates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadTemplates(f)
}
