package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	courses := c.Courses()
	require.NotEmpty(t, courses)
	assert.Equal(t, "smsts", courses[0].Code, "declaration order must be preserved")

	codes := make(map[string]bool)
	for _, course := range courses {
		codes[course.Code] = true
	}
	for _, want := range []string{"smsts", "sssts", "twc", "tws", "hsa", "nebosh-general", "nebosh-construction", "mhfa"} {
		assert.True(t, codes[want], "missing course %s", want)
	}

	var nebosh *Umbrella
	for i := range c.Umbrellas {
		if c.Umbrellas[i].Family == "NEBOSH" {
			nebosh = &c.Umbrellas[i]
		}
	}
	require.NotNil(t, nebosh)
	assert.Len(t, nebosh.Options, 2)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Not YAML", "categories: [unterminated"},
		{"Empty", "categories: []"},
		{"Duplicate code", `
categories:
  - name: A
    courses:
      - {code: x, name: X}
      - {code: x, name: Y}
`},
		{"Unknown umbrella code", `
categories:
  - name: A
    courses:
      - {code: x, name: X}
      - {code: y, name: Y}
umbrellas:
  - family: F
    terms: [f]
    options:
      - {code: x, label: X}
      - {code: z, label: Z}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestDefaultBytesIsCopy(t *testing.T) {
	b := DefaultBytes()
	b[0] = 'X'
	_, err := Default()
	assert.NoError(t, err)
}
