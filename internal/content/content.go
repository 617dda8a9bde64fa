// Package content holds the static marketing copy, starter suggestions and team roster.
package content

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

type Feature struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Member struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	LinkedIn    string `yaml:"linkedin"`
}

// Content is everything the non-chat screens display.
type Content struct {
	Product  string    `yaml:"product"`
	Tagline  string    `yaml:"tagline"`
	Features []Feature `yaml:"features"`
	Starters []string  `yaml:"starters"`
	Team     []Member  `yaml:"team"`
}

// Parse decodes YAML content and checks required fields.
func Parse(data []byte) (Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("content: decode: %w", err)
	}
	if c.Product == "" {
		return Content{}, errors.New("content: product name is required")
	}
	for i, m := range c.Team {
		if m.Name == "" {
			return Content{}, fmt.Errorf("content: team member %d has no name", i)
		}
	}
	return c, nil
}

// Default returns the embedded content. The embedded file is checked by tests, so a decode
// failure here is a build defect.
func Default() Content {
	c, err := Parse(defaultContent)
	if err != nil {
		panic(err)
	}
	return c
}
