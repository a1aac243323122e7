package catalog

import (
	"errors"
	"fmt"

	"discoverydraft-backend/models"

	"gopkg.in/yaml.v3"
)

// Predicate gates a template item on flag values. Exactly one of Flag, All,
// Any or Not is set. In YAML a bare scalar is shorthand for {flag: name}.
type Predicate struct {
	Flag string      `yaml:"flag,omitempty"`
	All  []Predicate `yaml:"all,omitempty"`
	Any  []Predicate `yaml:"any,omitempty"`
	Not  *Predicate  `yaml:"not,omitempty"`
}

// UnmarshalYAML accepts either a flag name or a predicate mapping
func (p *Predicate) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*p = Predicate{Flag: value.Value}
		return nil
	}
	type plain Predicate
	var out plain
	if err := value.Decode(&out); err != nil {
		return err
	}
	*p = Predicate(out)
	return nil
}

// Flag is a predicate true when the named flag is set
func Flag(name string) Predicate { return Predicate{Flag: name} }

// All is a predicate true when every operand is true
func All(ps ...Predicate) Predicate { return Predicate{All: ps} }

// Any is a predicate true when at least one operand is true
func Any(ps ...Predicate) Predicate { return Predicate{Any: ps} }

// Not negates a predicate
func Not(p Predicate) Predicate { return Predicate{Not: &p} }

// Eval evaluates the predicate against flags
func (p Predicate) Eval(flags models.Flags) bool {
	switch {
	case p.Flag != "":
		return flags.Get(p.Flag)
	case p.Not != nil:
		return !p.Not.Eval(flags)
	case len(p.All) > 0:
		for _, op := range p.All {
			if !op.Eval(flags) {
				return false
			}
		}
		return true
	case len(p.Any) > 0:
		for _, op := range p.Any {
			if op.Eval(flags) {
				return true
			}
		}
		return false
	}
	return false
}

// Flags returns every flag name referenced by the predicate
func (p Predicate) Flags() []string {
	var names []string
	var walk func(Predicate)
	walk = func(n Predicate) {
		if n.Flag != "" {
			names = append(names, n.Flag)
		}
		for _, op := range n.All {
			walk(op)
		}
		for _, op := range n.Any {
			walk(op)
		}
		if n.Not != nil {
			walk(*n.Not)
		}
	}
	walk(p)
	return names
}

var errEmptyPredicate = errors.New("predicate has no operator")

// Validate checks that each node sets exactly one operator
func (p Predicate) Validate() error {
	set := 0
	if p.Flag != "" {
		set++
	}
	if len(p.All) > 0 {
		set++
	}
	if len(p.Any) > 0 {
		set++
	}
	if p.Not != nil {
		set++
	}
	switch {
	case set == 0:
		return errEmptyPredicate
	case set > 1:
		return fmt.Errorf("predicate sets %d operators, want 1", set)
	}
	for _, op := range p.All {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	for _, op := range p.Any {
		if err := op.Validate(); err != nil {
			return err
		}
	}
	if p.Not != nil {
		return p.Not.Validate()
	}
	return nil
}
