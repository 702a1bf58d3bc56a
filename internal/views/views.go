package views

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
)

// Ext is the file extension of view templates.
const Ext = ".html"

// ErrViewNotFound indicates no template with the requested name was parsed.
var ErrViewNotFound = errors.New("view not found")

// Renderer renders a named view with the supplied data.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// TemplateSet holds every view parsed from a directory.
type TemplateSet struct {
	dir  string
	root *template.Template
}

// Load parses all *.html files in dir. Templates are addressed by file name
// with or without the extension.
func Load(dir string) (*TemplateSet, error) {
	root, err := template.ParseGlob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("parse views in %s: %w", dir, err)
	}
	return &TemplateSet{dir: dir, root: root}, nil
}

// Dir returns the directory the set was loaded from.
func (s *TemplateSet) Dir() string {
	return s.dir
}

// Render executes the named view. Output reaches w only after execution
// succeeds, so a failed render never leaves a partial document behind.
func (s *TemplateSet) Render(w io.Writer, name string, data any) error {
	tmpl := s.lookup(name)
	if tmpl == nil {
		return fmt.Errorf("%w: %s", ErrViewNotFound, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *TemplateSet) lookup(name string) *template.Template {
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	return s.root.Lookup(name)
}
