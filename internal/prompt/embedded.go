// Package prompt renders the text sent to the language model. Templates are
// YAML atoms baked into the binary with go:embed and executed with
// text/template.
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"jarvis/internal/logging"
)

// embeddedAtoms contains all YAML files from atoms/ baked into the binary.
//
//go:embed atoms
var embeddedAtoms embed.FS

// Atom is one named prompt template.
type Atom struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

var (
	loadOnce  sync.Once
	templates *template.Template
	atoms     map[string]Atom
	loadErr   error
)

// LoadEmbeddedAtoms parses every atom under atoms/. The result is cached.
func LoadEmbeddedAtoms() (map[string]Atom, error) {
	loadOnce.Do(func() {
		atoms, templates, loadErr = parseAtoms(embeddedAtoms)
	})
	return atoms, loadErr
}

func parseAtoms(fsys fs.FS) (map[string]Atom, *template.Template, error) {
	out := make(map[string]Atom)
	root := template.New("atoms").Option("missingkey=error")

	err := fs.WalkDir(fsys, "atoms", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read embedded file %s: %w", path, err)
		}
		var atom Atom
		if err := yaml.Unmarshal(data, &atom); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if atom.ID == "" {
			return fmt.Errorf("atom %s has no id", path)
		}
		if _, dup := out[atom.ID]; dup {
			return fmt.Errorf("duplicate atom id %q in %s", atom.ID, path)
		}
		if _, err := root.New(atom.ID).Parse(atom.Content); err != nil {
			return fmt.Errorf("failed to compile atom %q: %w", atom.ID, err)
		}
		out[atom.ID] = atom
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logging.BootDebug("Loaded %d prompt atoms", len(out))
	return out, root, nil
}

func render(id string, data any) (string, error) {
	if _, err := LoadEmbeddedAtoms(); err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, id, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", id, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
