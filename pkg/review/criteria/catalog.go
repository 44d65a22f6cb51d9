// Package criteria holds the fixed checklist, the review groups that walk it,
// and the verdict each criterion currently carries.
package criteria

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var ErrUnknownGroup = errors.New("criteria: unknown check group")

type Criterion struct {
	Name   string `yaml:"name" json:"name"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// Group is one review process: which assistant persona answers it, the intro
// that frames the thread, the ordered criteria and the closing summary prompt.
type Group struct {
	ID           string `yaml:"id" json:"id"`
	Title        string `yaml:"title" json:"title"`
	Assistant    string `yaml:"assistant" json:"assistant"`
	Intro        string `yaml:"intro" json:"intro"`
	Criteria     []int  `yaml:"criteria" json:"criteria"`
	Summary      string `yaml:"summary" json:"summary"`
	RecordChecks bool   `yaml:"record_checks" json:"record_checks"`
}

type Catalog struct {
	Criteria []Criterion `yaml:"criteria" json:"criteria"`
	Groups   []Group     `yaml:"groups" json:"groups"`
}

// DefaultCatalog returns the embedded checklist.
func DefaultCatalog() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// MustDefaultCatalog panics if the embedded checklist is broken.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog override from disk. An empty path yields the default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Criteria) == 0 {
		return errors.New("catalog: no criteria defined")
	}

	names := make(map[string]struct{}, len(c.Criteria))
	for i, cr := range c.Criteria {
		if cr.Name == "" || cr.Prompt == "" {
			return fmt.Errorf("catalog: criterion %d needs a name and a prompt", i)
		}
		if _, dup := names[cr.Name]; dup {
			return fmt.Errorf("catalog: duplicate criterion %q", cr.Name)
		}
		names[cr.Name] = struct{}{}
	}

	ids := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		if g.ID == "" {
			return errors.New("catalog: group without id")
		}
		if _, dup := ids[g.ID]; dup {
			return fmt.Errorf("catalog: duplicate group %q", g.ID)
		}
		ids[g.ID] = struct{}{}

		if g.Assistant == "" {
			return fmt.Errorf("catalog: group %q has no assistant persona", g.ID)
		}
		for _, idx := range g.Criteria {
			if idx < 0 || idx >= len(c.Criteria) {
				return fmt.Errorf("catalog: group %q references criterion %d out of range", g.ID, idx)
			}
		}
	}
	return nil
}

func (c *Catalog) Group(id string) (Group, error) {
	for _, g := range c.Groups {
		if g.ID == id {
			return g, nil
		}
	}
	return Group{}, fmt.Errorf("%w: %s", ErrUnknownGroup, id)
}

// Personas lists the distinct assistant personas the groups refer to.
func (c *Catalog) Personas() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, g := range c.Groups {
		if _, ok := seen[g.Assistant]; ok {
			continue
		}
		seen[g.Assistant] = struct{}{}
		out = append(out, g.Assistant)
	}
	return out
}
