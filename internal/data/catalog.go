// Package data provides static data definitions for the application.
// The course-code catalog is maintained by hand in courses.yaml and embedded
// into the binary; deployments may override it with a file of the same shape.
package data

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed courses.yaml
var defaultCatalog []byte

// Course is one course family: a canonical code and its descriptive name.
type Course struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	// Phrases are curated colloquial variants resolved directly to Code.
	Phrases []string `yaml:"phrases"`
	// Fallbacks are broader fragments that imply Code when nothing else matched.
	Fallbacks []string `yaml:"fallbacks"`
	// MatchAll lists token groups; a listing name containing every token of
	// any group belongs to this course.
	MatchAll [][]string `yaml:"match_all"`
}

// Category groups related courses.
type Category struct {
	Name    string   `yaml:"name"`
	Courses []Course `yaml:"courses"`
}

// UmbrellaOption is one of the concrete courses an umbrella term may mean.
type UmbrellaOption struct {
	Code       string   `yaml:"code"`
	Label      string   `yaml:"label"`
	Qualifiers []string `yaml:"qualifiers"`
}

// Umbrella is a family term that maps to more than one course code.
type Umbrella struct {
	Family  string           `yaml:"family"`
	Terms   []string         `yaml:"terms"`
	Options []UmbrellaOption `yaml:"options"`
}

// Catalog is the full course-code configuration.
type Catalog struct {
	Categories []Category `yaml:"categories"`
	Umbrellas  []Umbrella `yaml:"umbrellas"`
}

// Courses returns every course in declaration order.
func (c *Catalog) Courses() []Course {
	var out []Course
	for _, cat := range c.Categories {
		out = append(out, cat.Courses...)
	}
	return out
}

// Validate checks codes are unique and umbrella options reference known codes.
func (c *Catalog) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, course := range c.Courses() {
		code := strings.TrimSpace(course.Code)
		switch {
		case code == "":
			errs = append(errs, errors.New("course with empty code"))
			continue
		case strings.TrimSpace(course.Name) == "":
			errs = append(errs, fmt.Errorf("course %q has empty name", code))
		case seen[code]:
			errs = append(errs, fmt.Errorf("duplicate course code %q", code))
		}
		seen[code] = true
	}
	if len(seen) == 0 {
		errs = append(errs, errors.New("catalog has no courses"))
	}

	for _, u := range c.Umbrellas {
		if len(u.Terms) == 0 {
			errs = append(errs, fmt.Errorf("umbrella %q has no terms", u.Family))
		}
		if len(u.Options) < 2 {
			errs = append(errs, fmt.Errorf("umbrella %q needs at least two options", u.Family))
		}
		for _, opt := range u.Options {
			if !seen[opt.Code] {
				errs = append(errs, fmt.Errorf("umbrella %q references unknown code %q", u.Family, opt.Code))
			}
		}
	}
	return errors.Join(errs...)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode course catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid course catalog: %w", err)
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// DefaultBytes returns the raw embedded catalog document.
func DefaultBytes() []byte {
	out := make([]byte, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course catalog: %w", err)
	}
	return Parse(raw)
}
