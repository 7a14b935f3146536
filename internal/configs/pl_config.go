package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// GraphType selects which family of learned graphs a step works on.
type GraphType int

const (
	TreeIncr GraphType = iota
	TreeDecr
	Other
)

var GraphTypes = []GraphType{TreeIncr, TreeDecr, Other}

func (t GraphType) String() string {
	switch t {
	case TreeIncr:
		return "tree_incr"
	case TreeDecr:
		return "tree_decr"
	case Other:
		return "other"
	default:
		panic("unknown graph type")
	}
}

func ParseGraphType(s string) (GraphType, error) {
	for _, t := range GraphTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown graph type %q", s)
}

// Set and Type make GraphType usable as a command-line flag.
func (t *GraphType) Set(s string) error {
	v, err := ParseGraphType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *GraphType) Type() string {
	return "graphType"
}

func (t GraphType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func (t *GraphType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return t.Set(s)
}
