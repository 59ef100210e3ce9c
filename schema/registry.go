package schema

import (
	"fmt"
	"strings"
	"sync"
)

// entry is the registry's internal record for one schema key: a message
// structure, group, segment, field, or component (stored under its
// canonical name by Builder.Composite). The children of a field or
// component are not stored on its entry; they are read on demand from the
// composite data type table, keyed by data type code, since Provider is a
// pull interface rather than a walkable tree.
type entry struct {
	name     string
	kind     Kind
	longName string
	dataType string
	children []ChildSpec
}

// Registry is the reference, immutable, concurrency-safe Provider
// implementation: once built it is freely shareable across goroutines and
// across trees. Build one with NewBuilder or load one from data with
// LoadVersion (loader.go).
type Registry struct {
	version    Version
	entries    map[string]entry
	composites map[string][]ChildSpec // data type code -> ordered component/subcomponent specs
	baseTypes  map[string]BaseConstraints
	fieldTypes map[string]string // any Field/Component/SubComponent name -> data type code

	mu sync.RWMutex // read-locked by every lookup; Builder methods write without taking it
}

var _ Provider = (*Registry)(nil)

func newRegistry(v Version) *Registry {
	return &Registry{
		version:    v,
		entries:    make(map[string]entry),
		composites: make(map[string][]ChildSpec),
		baseTypes:  make(map[string]BaseConstraints),
		fieldTypes: make(map[string]string),
	}
}

func (r *Registry) Version() Version { return r.version }

func (r *Registry) LookupStructure(name string) (Kind, []ChildSpec, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Unknown, nil, "", false
	}
	children := e.children
	if (e.kind == FieldKind || e.kind == ComponentKind) && e.dataType != "" {
		children = r.composites[e.dataType]
	}
	return e.kind, children, e.dataType, true
}

func (r *Registry) ChildrenOf(parentName string) ([]ChildSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[parentName]; ok {
		switch e.kind {
		case MessageKind, GroupKind, SegmentKind:
			return e.children, nil
		case FieldKind, ComponentKind:
			if e.dataType == "" {
				return nil, nil
			}
			return r.composites[e.dataType], nil
		}
		return nil, nil
	}
	// Field/Component names are often generated aliases (PID_5_1 for
	// XPN_1); fall back to the data type derived from fieldTypes.
	if dt, ok := r.fieldTypes[parentName]; ok {
		return r.composites[dt], nil
	}
	return nil, fmt.Errorf("%s: %w", parentName, errUnknownName)
}

func (r *Registry) DataTypeOf(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.dataType, nil
	}
	if dt, ok := r.fieldTypes[name]; ok {
		return dt, nil
	}
	return "", fmt.Errorf("%s: %w", name, errUnknownName)
}

func (r *Registry) IsBase(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, isComposite := r.composites[code]
	if isComposite {
		return false
	}
	_, isBase := r.baseTypes[code]
	return isBase
}

func (r *Registry) BaseConstraints(code string) (BaseConstraints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.baseTypes[code]
	if !ok {
		return BaseConstraints{}, fmt.Errorf("%s: %w", code, errUnknownDataType)
	}
	return c, nil
}

func (r *Registry) ResolveLongName(parentName, longName string) (string, error) {
	children, err := r.ChildrenOf(parentName)
	if err != nil {
		return "", err
	}
	want := strings.ToLower(longName)
	for _, c := range children {
		if strings.ToLower(c.LongName) == want {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("%s.%s: %w", parentName, longName, errUnknownLongName)
}

var (
	errUnknownName     = fmt.Errorf("unknown schema name")
	errUnknownDataType = fmt.Errorf("unknown data type")
	errUnknownLongName = fmt.Errorf("unknown long name")
)

// Builder incrementally constructs a Registry. It is not safe for
// concurrent use; build on one goroutine, then share the returned
// *Registry freely.
type Builder struct {
	reg *Registry
}

// NewBuilder starts a Registry under construction for the given version.
func NewBuilder(v Version) *Builder {
	return &Builder{reg: newRegistry(v)}
}

// Message defines a message structure's top-level children (segments and
// groups, in wire order).
func (b *Builder) Message(name string, children ...ChildSpec) *Builder {
	b.reg.entries[name] = entry{name: name, kind: MessageKind, children: children}
	return b
}

// Group defines a schema-level group's children.
func (b *Builder) Group(name string, children ...ChildSpec) *Builder {
	b.reg.entries[name] = entry{name: name, kind: GroupKind, children: children}
	return b
}

// Segment defines a segment's fields, in wire order.
func (b *Builder) Segment(name, longName string, fields ...ChildSpec) *Builder {
	b.reg.entries[name] = entry{name: name, kind: SegmentKind, longName: longName, children: fields}
	for _, f := range fields {
		if f.DataType != "" {
			b.reg.fieldTypes[f.Name] = f.DataType
		}
		b.reg.entries[f.Name] = entry{
			name:     f.Name,
			kind:     FieldKind,
			longName: f.LongName,
			dataType: f.DataType,
		}
	}
	return b
}

// Composite defines a composite data type's component structure. code is
// the data type (e.g. "CX"); components' names are conventionally
// "<code>_<n>" (e.g. "CX_4").
func (b *Builder) Composite(code string, components ...ChildSpec) *Builder {
	b.reg.composites[code] = components
	for _, c := range components {
		if c.DataType != "" {
			b.reg.fieldTypes[c.Name] = c.DataType
		}
		// Component names (e.g. CX_4) are themselves valid schema keys,
		// resolved the same way as Field/Segment names.
		b.reg.entries[c.Name] = entry{
			name:     c.Name,
			kind:     ComponentKind,
			longName: c.LongName,
			dataType: c.DataType,
		}
	}
	return b
}

// BaseType registers a base (scalar) data type's conformance rules.
func (b *Builder) BaseType(code string, c BaseConstraints) *Builder {
	b.reg.baseTypes[code] = c
	return b
}

// Alias registers name as resolving to the same schema record as
// canonical, for HL7's aliased field-composite naming convention (e.g.
// PID_5_1 aliasing XPN_1).
func (b *Builder) Alias(name, canonical string) *Builder {
	if e, ok := b.reg.entries[canonical]; ok {
		b.reg.entries[name] = e
	}
	if dt, ok := b.reg.fieldTypes[canonical]; ok {
		b.reg.fieldTypes[name] = dt
	}
	return b
}

// Build finalizes and returns the Registry.
func (b *Builder) Build() *Registry {
	return b.reg
}
