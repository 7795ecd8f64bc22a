// Package template stores reusable team blueprints as YAML files, one
// template per file, so operators can spin up a recurring team shape
// without retyping its roster.
package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a named template does not exist.
var ErrNotFound = errors.New("template not found")

// Role is one member slot in a template.
type Role struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt,omitempty"`
}

// Template is a saved team blueprint.
type Template struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Roles       []Role    `yaml:"roles"`
	Favorite    bool      `yaml:"favorite"`
	CreatedAt   time.Time `yaml:"createdAt"`
}

// Service manages the templates directory.
type Service struct {
	dir string
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service rooted at dir.
func NewService(dir string, opts ...Option) *Service {
	s := &Service{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("template: name is empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("template: invalid name %q", name)
	}
	return nil
}

// List returns every template, favorites first, then by name.
// A missing templates directory yields an empty list.
func (s *Service) List() ([]Template, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("template: read directory: %w", err)
	}

	var out []Template
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		tpl, err := s.load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Favorite != out[j].Favorite {
			return out[i].Favorite
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Get returns the named template.
func (s *Service) Get(name string) (Template, error) {
	if err := validName(name); err != nil {
		return Template{}, err
	}
	tpl, err := s.load(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return Template{}, ErrNotFound
	}
	return tpl, err
}

func (s *Service) load(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("template: read %s: %w", filepath.Base(path), err)
	}
	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("template: parse %s: %w", filepath.Base(path), err)
	}
	return tpl, nil
}

// Save writes a template, overwriting any existing one of the same
// name. A zero CreatedAt is stamped with the current time.
func (s *Service) Save(tpl Template) error {
	if err := validName(tpl.Name); err != nil {
		return err
	}
	if len(tpl.Roles) == 0 {
		return fmt.Errorf("template: %q has no roles", tpl.Name)
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = s.now().UTC()
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("template: create directory: %w", err)
	}
	data, err := yaml.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("template: marshal %q: %w", tpl.Name, err)
	}
	if err := os.WriteFile(s.path(tpl.Name), data, 0o644); err != nil {
		return fmt.Errorf("template: write %q: %w", tpl.Name, err)
	}
	return nil
}

// Delete removes the named template.
func (s *Service) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("template: delete %q: %w", name, err)
	}
	return nil
}

// ToggleFavorite flips the favorite flag on the named template and
// returns the new value.
func (s *Service) ToggleFavorite(name string) (bool, error) {
	tpl, err := s.Get(name)
	if err != nil {
		return false, err
	}
	tpl.Favorite = !tpl.Favorite
	if err := s.Save(tpl); err != nil {
		return false, err
	}
	return tpl.Favorite, nil
}
