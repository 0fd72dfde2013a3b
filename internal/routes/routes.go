// Package routes loads the label-to-handler tables consumed by the
// route workflow.
//
// A routes file is a YAML mapping (JSON works too, YAML being a
// superset) from label to route:
//
//	billing:
//	  system: You are a billing specialist.
//	  template: "Answer this billing question: {input}"
//	support:
//	  model: claude-haiku-4-5-20251001
//
// Label order in the file is preserved; it drives the classifier
// prompt and --list-labels output.
package routes

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route is one classification target.
type Route struct {
	// System is the handler's optional system instruction.
	System string `yaml:"system"`
	// Model optionally overrides the run's model for this route.
	Model string `yaml:"model"`
	// Template renders the handler prompt; every {input} placeholder
	// is replaced with the user input. Defaults to "{input}".
	Template string `yaml:"template"`
}

// RenderPrompt renders the route's template against the input.
func (r Route) RenderPrompt(input string) string {
	tmpl := r.Template
	if tmpl == "" {
		tmpl = "{input}"
	}
	return strings.ReplaceAll(tmpl, "{input}", input)
}

// Table holds the routes of one file in label order.
type Table struct {
	labels []string
	routes map[string]Route
}

// Load reads a route table from a YAML or JSON file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a route table, preserving label order.
func Parse(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("routes file is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("routes file must be a mapping of label to route")
	}

	t := &Table{routes: make(map[string]Route)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]

		label := keyNode.Value
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("route %d has an empty label", i/2+1)
		}
		if _, dup := t.routes[label]; dup {
			return nil, fmt.Errorf("duplicate route label %q", label)
		}

		var r Route
		if err := valNode.Decode(&r); err != nil {
			return nil, fmt.Errorf("route %q: %w", label, err)
		}

		t.labels = append(t.labels, label)
		t.routes[label] = r
	}

	if len(t.labels) == 0 {
		return nil, fmt.Errorf("routes file defines no routes")
	}
	return t, nil
}

// Labels returns the labels in file order.
func (t *Table) Labels() []string {
	return t.labels
}

// Get looks up the route for a label.
func (t *Table) Get(label string) (Route, bool) {
	r, ok := t.routes[label]
	return r, ok
}
