package terminal

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

type Section struct {
	Heading  string   `yaml:"heading" json:"heading"`
	Subtitle string   `yaml:"subtitle" json:"subtitle,omitempty"`
	Period   string   `yaml:"period" json:"period,omitempty"`
	Items    []string `yaml:"items" json:"items,omitempty"`
	Link     string   `yaml:"link" json:"link,omitempty"`
}

type Panel struct {
	Title    string    `yaml:"title" json:"title"`
	Body     string    `yaml:"body" json:"body,omitempty"`
	Sections []Section `yaml:"sections" json:"sections,omitempty"`
}

type Entry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Panel       *Panel `yaml:"panel"`
}

type Content struct {
	Owner   string `yaml:"owner"`
	Welcome Panel  `yaml:"welcome"`
	Hint    string `yaml:"hint"`
	Sudo    string `yaml:"sudo"`
	Ask     struct {
		Prompt       string `yaml:"prompt"`
		SystemPrompt string `yaml:"system_prompt"`
	} `yaml:"ask"`
	Commands []Entry `yaml:"commands"`
}

// LoadContent reads portfolio content from path, or the built-in content
// when path is empty.
func LoadContent(path string) (*Content, error) {
	b := defaultContent
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return ParseContent(b)
}

func ParseContent(b []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Content) validate() error {
	if len(c.Commands) == 0 {
		return errors.New("content: no commands defined")
	}
	seen := make(map[string]struct{}, len(c.Commands))
	for i, e := range c.Commands {
		if e.Name == "" {
			return fmt.Errorf("content: command %d has no name", i)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("content: duplicate command %q", e.Name)
		}
		seen[e.Name] = struct{}{}
		if _, ok := builtins[e.Name]; !ok && e.Panel == nil {
			return fmt.Errorf("content: command %q needs a panel", e.Name)
		}
	}
	return nil
}
