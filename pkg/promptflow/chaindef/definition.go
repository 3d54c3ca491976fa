// Package chaindef loads prompt chains from YAML files.
//
// A chain file lists steps in order. Each step is exactly one of a
// literal, a template, an if or a while:
//
//	name: review
//	models: [gpt-4o, gpt-4o-mini]
//	system_prompt: You are a careful code reviewer.
//	vars:
//	  round: 0
//	steps:
//	  - literal: Here is the change under review.
//	  - template: "Review {file} for correctness."
//	    decode: text
//	    save_as: review
//	  - while: round < 3 and not (review contains 'LGTM')
//	    do:
//	      template: "Revise your review: {review}"
//	      decode: text
//	      save_as: review
//	      incr: round
//
// Conditions are expr expressions (see package expr). if_func and
// while_func name a condition registered in Go instead.
package chaindef

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Leaf labels written by Build. Runners read them back from the node.
const (
	LabelDecode = "decode"
	LabelSaveAs = "save_as"
	LabelIncr   = "incr"
	LabelSchema = "schema"
)

// Definition is a decoded chain file.
type Definition struct {
	Name         string         `mapstructure:"name"`
	Description  string         `mapstructure:"description"`
	SystemPrompt string         `mapstructure:"system_prompt"`
	Models       []string       `mapstructure:"models"`
	MaxTokens    int            `mapstructure:"max_tokens"`
	Temperature  *float64       `mapstructure:"temperature"`
	Budget       *int           `mapstructure:"budget"`
	MaxSteps     int            `mapstructure:"max_steps"`
	Missing      string         `mapstructure:"missing"`
	Vars         map[string]any `mapstructure:"vars"`
	Steps        []Step         `mapstructure:"steps"`
}

// Step is one node of a chain file.
type Step struct {
	Name string `mapstructure:"name"`

	Literal  *string `mapstructure:"literal"`
	Template *string `mapstructure:"template"`

	If     string `mapstructure:"if"`
	IfFunc string `mapstructure:"if_func"`
	Then   *Step  `mapstructure:"then"`
	Else   *Step  `mapstructure:"else"`

	While     string `mapstructure:"while"`
	WhileFunc string `mapstructure:"while_func"`
	Do        *Step  `mapstructure:"do"`

	Decode string         `mapstructure:"decode"`
	SaveAs string         `mapstructure:"save_as"`
	Incr   string         `mapstructure:"incr"`
	Schema map[string]any `mapstructure:"schema"`
}

// Load reads and parses a chain file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a chain document. Unknown keys are errors.
func Parse(data []byte) (*Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty chain document")
	}

	var def Definition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &def,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}
	return &def, nil
}

// schemaJSON returns the step's schema as JSON text, or "" if it has none.
func (s *Step) schemaJSON() (string, error) {
	if len(s.Schema) == 0 {
		return "", nil
	}
	b, err := json.Marshal(s.Schema)
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	return string(b), nil
}
