package schema

import (
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

// yamlChildSpec mirrors ChildSpec for the on-disk table format.
type yamlChildSpec struct {
	Name     string `yaml:"name"`
	LongName string `yaml:"longName"`
	Min      int    `yaml:"min"`
	Max      int    `yaml:"max"`
	DataType string `yaml:"dataType"`
}

func (y yamlChildSpec) toChildSpec() ChildSpec {
	max := y.Max
	if max == 0 {
		max = 1
	}
	if y.Max < 0 {
		max = Unbounded
	}
	return ChildSpec{Name: y.Name, LongName: y.LongName, Min: y.Min, Max: max, DataType: y.DataType}
}

type yamlBaseType struct {
	MaxLength int    `yaml:"maxLength"`
	Regex     string `yaml:"regex"`
	Charset   string `yaml:"charset"`
}

type yamlSegment struct {
	LongName string          `yaml:"longName"`
	Fields   []yamlChildSpec `yaml:"fields"`
}

type yamlStructure struct {
	Children []yamlChildSpec `yaml:"children"`
}

// document is the root shape of a per-version schema table file. It is
// intentionally small: enough to drive every operation in this package,
// not a complete transcription of the HL7 v2 standard. Full per-version
// table content is left to whatever data source a deployment wires in.
type document struct {
	Version    string                   `yaml:"version"`
	BaseTypes  map[string]yamlBaseType  `yaml:"baseTypes"`
	Composites map[string][]yamlChildSpec `yaml:"composites"`
	Segments   map[string]yamlSegment   `yaml:"segments"`
	Messages   map[string]yamlStructure `yaml:"messages"`
	Groups     map[string]yamlStructure `yaml:"groups"`
	Aliases    map[string]string        `yaml:"aliases"`
}

// LoadVersion parses a YAML schema table document into a Registry. This is
// the reference loading mechanism for per-version content; it is not
// itself part of the core's logic, only the plumbing that keeps table
// content external to it.
func LoadVersion(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding schema document: %w", err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("schema document missing version")
	}
	v := Version(doc.Version)
	if !IsSupportedVersion(v) {
		return nil, fmt.Errorf("%s: %w", doc.Version, ErrUnsupportedVersion)
	}

	b := NewBuilder(v)

	for code, bt := range doc.BaseTypes {
		constraints := BaseConstraints{MaxLength: bt.MaxLength, Charset: bt.Charset}
		if bt.Regex != "" {
			re, err := regexp.Compile(bt.Regex)
			if err != nil {
				return nil, fmt.Errorf("base type %s: compiling regex %q: %w", code, bt.Regex, err)
			}
			constraints.Regex = re
		}
		b.BaseType(code, constraints)
	}

	for code, components := range doc.Composites {
		specs := make([]ChildSpec, len(components))
		for i, c := range components {
			specs[i] = c.toChildSpec()
		}
		b.Composite(code, specs...)
	}

	for name, seg := range doc.Segments {
		specs := make([]ChildSpec, len(seg.Fields))
		for i, f := range seg.Fields {
			specs[i] = f.toChildSpec()
		}
		b.Segment(name, seg.LongName, specs...)
	}

	for name, grp := range doc.Groups {
		specs := make([]ChildSpec, len(grp.Children))
		for i, c := range grp.Children {
			specs[i] = c.toChildSpec()
		}
		b.Group(name, specs...)
	}

	for name, msg := range doc.Messages {
		specs := make([]ChildSpec, len(msg.Children))
		for i, c := range msg.Children {
			specs[i] = c.toChildSpec()
		}
		b.Message(name, specs...)
	}

	for alias, canonical := range doc.Aliases {
		b.Alias(alias, canonical)
	}

	return b.Build(), nil
}

// ErrUnsupportedVersion is returned by LoadVersion when the document names
// a version outside SupportedVersions.
var ErrUnsupportedVersion = fmt.Errorf("unsupported HL7 version")
