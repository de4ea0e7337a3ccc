// Package terminal implements the portfolio's command set: static panels,
// help, clear, sudo, and the askai prompt.
package terminal

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindPanel  Kind = "panel"
	KindText   Kind = "text"
	KindHelp   Kind = "help"
	KindPrompt Kind = "prompt"
	KindError  Kind = "error"
)

// Output is what a command renders in the scrollback.
type Output struct {
	Command  string `json:"command"`
	Kind     Kind   `json:"kind"`
	Text     string `json:"text,omitempty"`
	Panel    *Panel `json:"panel,omitempty"`
	Commands []Info `json:"commands,omitempty"`
	// Clear asks the client to wipe the scrollback before showing this output.
	Clear bool `json:"clear,omitempty"`
}

type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Command struct {
	Name        string
	Description string
	Action      func() Output
}

// commands whose behavior is not a static panel
var builtins = map[string]struct{}{
	"help":  {},
	"askai": {},
	"clear": {},
	"sudo":  {},
}

type Registry struct {
	content  *Content
	order    []string
	commands map[string]Command
}

func New(c *Content) *Registry {
	r := &Registry{
		content:  c,
		commands: make(map[string]Command, len(c.Commands)),
	}
	for _, e := range c.Commands {
		r.order = append(r.order, e.Name)
		r.commands[e.Name] = Command{
			Name:        e.Name,
			Description: e.Description,
			Action:      r.action(e),
		}
	}
	return r
}

func (r *Registry) action(e Entry) func() Output {
	switch e.Name {
	case "help":
		return func() Output {
			return Output{Command: "help", Kind: KindHelp, Commands: r.Commands()}
		}
	case "askai":
		return func() Output {
			return Output{Command: "askai", Kind: KindPrompt, Text: r.content.Ask.Prompt}
		}
	case "clear":
		return r.clear
	case "sudo":
		return func() Output {
			return Output{Command: "sudo", Kind: KindText, Text: r.content.Sudo}
		}
	}
	panel := e.Panel
	return func() Output {
		return Output{Command: e.Name, Kind: KindPanel, Panel: panel}
	}
}

// Execute runs one line of input. The first word selects the command and
// the rest is ignored. It returns false for blank input.
func (r *Registry) Execute(input string) (Output, bool) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return Output{}, false
	}
	name := fields[0]
	if name == "clear" {
		return r.clear(), true
	}

	cmd, ok := r.commands[name]
	if !ok {
		return Output{
			Command: name,
			Kind:    KindError,
			Text:    fmt.Sprintf("Command not found: %s. Type 'help' to see available commands.", name),
		}, true
	}
	return cmd.Action(), true
}

// clear wipes the scrollback whether or not the content lists it.
func (r *Registry) clear() Output {
	return Output{Command: "clear", Kind: KindText, Text: r.content.Hint, Clear: true}
}

// Known reports whether name is a registered command.
func (r *Registry) Known(name string) bool {
	_, ok := r.commands[name]
	return ok
}

func (r *Registry) Commands() []Info {
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Info{Name: name, Description: r.commands[name].Description})
	}
	return out
}

func (r *Registry) Welcome() Output {
	w := r.content.Welcome
	return Output{Command: "welcome", Kind: KindPanel, Panel: &w}
}

// SystemPrompt is the persona sent with every askai question.
func (r *Registry) SystemPrompt() string {
	return r.content.Ask.SystemPrompt
}
