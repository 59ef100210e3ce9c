// Package hl7 implements the core of an HL7 v2 message library: a schema
// registry interface, a typed element tree with strict/lenient validation
// disciplines, and an ER7 parser/printer pair that are exact round-trip
// inverses under a declared delimiter set.
package hl7

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arcward/hl7v2/schema"
)

// Kind tags every node in the element tree. It is the same type the
// Schema Registry reports structure in, since the tree is built directly
// from schema lookups.
type Kind = schema.Kind

// Node kinds, renamed onto the tree's own vocabulary (Message ⊃ Group* ⊃
// Segment ⊃ Field ⊃ Component ⊃ SubComponent).
const (
	UnknownNode      = schema.Unknown
	MessageNode      = schema.MessageKind
	GroupNode        = schema.GroupKind
	SegmentNode      = schema.SegmentKind
	FieldNode        = schema.FieldKind
	ComponentNode    = schema.ComponentKind
	SubComponentNode = schema.SubComponentKind
)

// ValidationLevel is the discipline a tree enforces at mutation time. It
// is set once, at root construction, and inherited by every descendant.
type ValidationLevel uint8

const (
	// Lenient accepts anonymous nodes, tolerates unknown names, and skips
	// cardinality/data-type checks during mutation; Validate still reports
	// them. This is the default.
	Lenient ValidationLevel = iota
	// Strict refuses to construct nodes whose name is unknown to the
	// schema, enforces child legality and cardinality on every mutating
	// operation, and validates scalar values as they are set.
	Strict
)

func (l ValidationLevel) String() string {
	if l == Strict {
		return "STRICT"
	}
	return "LENIENT"
}

func (l ValidationLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *ValidationLevel) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "STRICT":
		*l = Strict
	case "LENIENT":
		*l = Lenient
	default:
		return fmt.Errorf("unrecognized ValidationLevel %q", name)
	}
	return nil
}

// treeContext is shared, by pointer, by every Node in one tree. Mutating
// Delimiters on any node therefore re-points the whole tree's delimiter set
// before the next encode.
type treeContext struct {
	registry schema.Provider
	delims   Delimiters
	level    ValidationLevel
}

// Option configures a tree at construction time (NewMessage, ParseMessage,
// ...). See WithRegistry, WithValidationLevel, WithDelimiters.
type Option func(*treeContext)

// WithRegistry supplies the Schema Registry a tree validates names and
// cardinality against. Without one, the tree behaves as if every name were
// unknown: it constructs successfully only in Lenient mode, storing nodes
// verbatim.
func WithRegistry(p schema.Provider) Option {
	return func(c *treeContext) { c.registry = p }
}

// WithValidationLevel sets the tree's validation discipline. Default: Lenient.
func WithValidationLevel(l ValidationLevel) Option {
	return func(c *treeContext) { c.level = l }
}

// WithDelimiters sets the tree's initial delimiter set. Default: DefaultDelimiters().
func WithDelimiters(d Delimiters) Option {
	return func(c *treeContext) { c.delims = d }
}

func newTreeContext(opts []Option) *treeContext {
	c := &treeContext{delims: DefaultDelimiters(), level: Lenient}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Node is a single element in the tree: a Message, Group, Segment, Field,
// Component or SubComponent. All six kinds share this one struct and
// operation set; which operations are meaningful depends on Kind.
type Node struct {
	Kind Kind
	// Name is the schema key (PID, PID_5, CX_4, ...), or "" for an
	// anonymous node (Lenient mode only).
	Name string
	// LongName is the human label from the schema (patient_name), used for
	// case-insensitive attribute-style lookup.
	LongName string
	// DataType is set for Field/Component/SubComponent: a schema data type
	// code (ST, NM, CX, XPN, ...).
	DataType string
	// Value holds the decoded scalar value. Only meaningful when Children
	// is empty: a scalar node never has children.
	Value string
	// Children is the ordered sequence of child nodes, in wire order,
	// including repetitions.
	Children []*Node
	// Parent is the owning node, or nil for a root or a detached read
	// placeholder.
	Parent *Node

	ctx *treeContext
}

// ValidationLevel reports the discipline this node's tree was constructed
// with.
func (n *Node) ValidationLevel() ValidationLevel { return n.ctx.level }

// Delimiters reports the tree's current delimiter set.
func (n *Node) Delimiters() Delimiters { return n.ctx.delims }

// SetDelimiters updates the whole tree's delimiter set. Because every
// node in a tree shares one treeContext, this takes effect immediately no
// matter which node it's called on, and applies to the next encode.
func (n *Node) SetDelimiters(d Delimiters) error {
	if err := d.Validate(); err != nil {
		return err
	}
	n.ctx.delims = d
	return nil
}

// Registry returns the Schema Registry this tree was built against, or nil
// if none was supplied.
func (n *Node) Registry() schema.Provider { return n.ctx.registry }

// Root returns the topmost node of the tree.
func (n *Node) Root() *Node {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// Occurrence returns this node's 0-based index among its parent's children
// sharing the same Name.
func (n *Node) Occurrence() int {
	if n.Parent == nil {
		return 0
	}
	idx := 0
	for _, sibling := range n.Parent.Children {
		if sibling == n {
			return idx
		}
		if sibling.Name == n.Name {
			idx++
		}
	}
	return 0
}

// Path returns a materialized path from the root to this node, using
// repetition indices where a name occurs more than once among its
// siblings (e.g. /ADT_A01/PID/PID_5[1]/XPN_1).
func (n *Node) Path() string {
	if n.Parent == nil {
		if n.Name == "" {
			return ""
		}
		return "/" + n.Name
	}
	segment := n.Name
	if segment == "" {
		segment = "?"
	}
	if occursMoreThanOnce(n.Parent, n.Name) {
		segment = fmt.Sprintf("%s[%d]", segment, n.Occurrence())
	}
	return n.Parent.Path() + "/" + segment
}

func occursMoreThanOnce(parent *Node, name string) bool {
	count := 0
	for _, c := range parent.Children {
		if c.Name == name {
			count++
			if count > 1 {
				return true
			}
		}
	}
	return false
}

// IsScalar reports whether n can hold Value directly rather than
// decomposing into children: true for SubComponent always; for a
// Field/Component with a DataType, true when the registry lists it as a
// base type or the tree has no registry; for a Field/Component without a
// DataType, true while it has no children.
func (n *Node) IsScalar() bool {
	switch n.Kind {
	case SubComponentNode:
		return true
	case FieldNode, ComponentNode:
		if n.DataType == "" {
			return len(n.Children) == 0
		}
		if n.ctx.registry == nil {
			return true
		}
		return n.ctx.registry.IsBase(n.DataType)
	default:
		return false
	}
}

// occurrencesOf returns n's children whose Name equals name, in wire order.
func (n *Node) occurrencesOf(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// childKindFor returns the Kind a newly created, named child of n must
// have, and whether that Kind can be determined structurally (true for
// every parent Kind except Message/Group, whose children may be either
// Segment or Group and must be resolved via the registry).
func childKindFor(parentKind Kind) (Kind, bool) {
	switch parentKind {
	case SegmentNode:
		return FieldNode, true
	case FieldNode:
		return ComponentNode, true
	case ComponentNode:
		return SubComponentNode, true
	default:
		return UnknownNode, false
	}
}

// childSpec looks up the schema's declared child named childName under n,
// returning ok=false if n has no schema entry or childName is not among
// its children.
func (n *Node) childSpec(childName string) (schema.ChildSpec, bool) {
	if n.ctx.registry == nil || n.Name == "" {
		return schema.ChildSpec{}, false
	}
	children, err := n.ctx.registry.ChildrenOf(n.Name)
	if err != nil {
		return schema.ChildSpec{}, false
	}
	for _, c := range children {
		if c.Name == childName {
			return c, true
		}
	}
	return schema.ChildSpec{}, false
}

// newChildNode constructs (but does not attach) a child of n named
// childName, resolving its Kind and DataType from the schema when
// possible. In Strict mode an unresolvable name is an error; in Lenient
// mode the child keeps the requested name verbatim, with the
// structurally-implied Kind, or Segment when the parent is a Message/Group
// and the registry doesn't know the name.
func (n *Node) newChildNode(childName string) (*Node, error) {
	kind, structural := childKindFor(n.Kind)
	spec, known := n.childSpec(childName)

	if !structural {
		// Message/Group: the child's Kind (Segment vs Group) must come
		// from the registry.
		if n.ctx.registry != nil {
			k, _, _, found := n.ctx.registry.LookupStructure(childName)
			if found {
				kind = k
				structural = true
			}
		}
		if !structural {
			if n.ctx.level == Strict {
				return nil, newNodeError(n, fmt.Errorf("%s: %w", childName, ErrInvalidName))
			}
			// Lenient, Message/Group parent, totally unknown child: default
			// to Segment, the only kind with a wire-level name this shallow.
			kind = SegmentNode
		}
	}

	if !known && n.ctx.level == Strict {
		return nil, newNodeError(n, fmt.Errorf("%s: %w", childName, ErrChildNotValid))
	}

	child := &Node{
		Kind:     kind,
		Name:     childName,
		LongName: spec.LongName,
		DataType: spec.DataType,
		Parent:   n,
		ctx:      n.ctx,
	}
	return child, nil
}

// Add appends child to n's Children. In Strict mode, fails with
// ErrChildNotValid if child's name is not a schema-legal child of n, or
// ErrMaxChildLimitReached if the cardinality maximum is already met.
func (n *Node) Add(child *Node) error {
	if n.ctx.level == Strict {
		spec, known := n.childSpec(child.Name)
		if !known {
			return newNodeError(n, fmt.Errorf("%s: %w", child.Name, ErrChildNotValid))
		}
		if spec.Max != schema.Unbounded && len(n.occurrencesOf(child.Name)) >= spec.Max {
			return newNodeError(n, fmt.Errorf("%s: %w", child.Name, ErrMaxChildLimitReached))
		}
	}
	child.Parent = n
	child.ctx = n.ctx
	n.Children = append(n.Children, child)
	return nil
}

// AddSegment constructs and appends a Segment child named name. n must be
// a Message or Group. The child's Kind comes from the registry when it
// knows name, so a schema group name yields a Group child.
func (n *Node) AddSegment(name string) (*Node, error) {
	if n.Kind != MessageNode && n.Kind != GroupNode {
		return nil, newNodeError(n, fmt.Errorf("%s: %w", name, ErrOperationNotAllowed))
	}
	child, err := n.newChildNode(name)
	if err != nil {
		return nil, err
	}
	if err := n.Add(child); err != nil {
		return nil, err
	}
	return child, nil
}

// AddGroup constructs and appends a Group child named name. n must be a
// Message or Group. It resolves the child exactly as AddSegment does, so
// the child is a Group only when the registry lists name as a group.
func (n *Node) AddGroup(name string) (*Node, error) {
	return n.AddSegment(name) // shares Message/Group-child resolution logic
}

// AddField constructs and appends a Field child named name. n must be a
// Segment.
func (n *Node) AddField(name string) (*Node, error) {
	if n.Kind != SegmentNode {
		return nil, newNodeError(n, fmt.Errorf("%s: %w", name, ErrOperationNotAllowed))
	}
	child, err := n.newChildNode(name)
	if err != nil {
		return nil, err
	}
	if err := n.Add(child); err != nil {
		return nil, err
	}
	return child, nil
}

// Remove detaches child from n. No cardinality enforcement is performed; a
// later Validate() call will catch an under-minimum count.
func (n *Node) Remove(child *Node) error {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return nil
		}
	}
	return newNodeError(n, fmt.Errorf("%s: %w", child.Name, ErrChildNotFound))
}

// RemoveAt detaches the child named name at the given 0-based occurrence
// index.
func (n *Node) RemoveAt(name string, index int) error {
	matches := n.occurrencesOf(name)
	if index < 0 || index >= len(matches) {
		return newNodeError(n, fmt.Errorf("%s[%d]: %w", name, index, ErrChildNotFound))
	}
	return n.Remove(matches[index])
}

// resolveChildName implements attribute-style name resolution: a
// case-insensitive match against a direct child's canonical name, then
// its long name. The compound alias notation some data types expose at
// the Schema Registry level (e.g. PID_5_1 for XPN_1) is a registry lookup
// convenience, not a tree-navigation shorthand: reach a component two
// levels down with two chained Get calls (Get("PID_5").Get("XPN_1")),
// which this resolution already supports at each level.
func (n *Node) resolveChildName(requested string) (string, error) {
	upper := strings.ToUpper(requested)
	if n.ctx.registry != nil && n.Name != "" {
		if children, err := n.ctx.registry.ChildrenOf(n.Name); err == nil {
			for _, c := range children {
				if c.Name == upper {
					return c.Name, nil
				}
			}
		}
		if canonical, err := n.ctx.registry.ResolveLongName(n.Name, requested); err == nil {
			return canonical, nil
		}
	}
	if n.ctx.level == Lenient {
		// No schema to consult (or name genuinely unknown): accept the
		// requested name verbatim, preserving whatever case was given for
		// an already-attached anonymous child, else the upper-cased form.
		for _, c := range n.Children {
			if strings.EqualFold(c.Name, requested) {
				return c.Name, nil
			}
		}
		return upper, nil
	}
	return "", newNodeError(n, fmt.Errorf("%s: %w", requested, ErrChildNotFound))
}

// Get retrieves the child named name (or resolved via its long name),
// defaulting to occurrence 0. If the child does not yet
// exist but is schema-legal, Get returns an empty, unattached placeholder
// node rather than an error. In Strict mode, a name that is not
// schema-legal for n fails with ErrChildNotFound; Lenient mode accepts it
// and returns a placeholder under that name.
func (n *Node) Get(name string, index ...int) (*Node, error) {
	canonical, err := n.resolveChildName(name)
	if err != nil {
		return nil, err
	}
	idx := 0
	if len(index) > 0 {
		idx = index[0]
	}
	matches := n.occurrencesOf(canonical)
	if idx >= 0 && idx < len(matches) {
		return matches[idx], nil
	}
	placeholder, err := n.newChildNode(canonical)
	if err != nil {
		return nil, err
	}
	placeholder.Parent = nil
	return placeholder, nil
}

// Set assigns value to the child named name (or resolved via its long
// name) at the given occurrence (default 0), creating it first
// if it does not yet exist. value must be a *Node (detach-and-reattach
// cross-assignment) or a string (sub-parse for a composite target,
// decode-and-store for a scalar one).
func (n *Node) Set(name string, value any, index ...int) error {
	canonical, err := n.resolveChildName(name)
	if err != nil {
		return err
	}
	idx := 0
	if len(index) > 0 {
		idx = index[0]
	}

	matches := n.occurrencesOf(canonical)
	for len(matches) <= idx {
		child, err := n.newChildNode(canonical)
		if err != nil {
			return err
		}
		if err := n.Add(child); err != nil {
			return err
		}
		matches = n.occurrencesOf(canonical)
	}
	target := matches[idx]

	switch v := value.(type) {
	case *Node:
		return n.setNode(target, idx, v)
	case string:
		return n.setString(target, v)
	default:
		return newNodeError(n, fmt.Errorf("unsupported value type %T: %w", value, ErrOperationNotAllowed))
	}
}

// setNode implements detach-and-reattach cross-assignment: replacement is
// detached from its previous parent (if any) and takes current's place as
// n's child, preserving pointer identity within the new tree.
func (n *Node) setNode(current *Node, atIndex int, replacement *Node) error {
	if replacement.Parent != nil {
		if err := replacement.Parent.Remove(replacement); err != nil {
			return err
		}
	}
	for i, c := range n.Children {
		if c == current {
			n.Children[i] = replacement
			replacement.Parent = n
			replacement.Name = current.Name
			replacement.reparentTree(n.ctx)
			return nil
		}
	}
	return newNodeError(n, fmt.Errorf("%s: %w", current.Name, ErrChildNotFound))
}

// reparentTree re-points every node in the subtree rooted at n at ctx, so
// a cross-tree move carries its nodes into the destination tree's
// delimiter/validation/registry context.
func (n *Node) reparentTree(ctx *treeContext) {
	n.ctx = ctx
	for _, c := range n.Children {
		c.reparentTree(ctx)
	}
}

// setString implements the scalar decode-and-store path and the composite
// sub-parse path of a string assignment.
func (n *Node) setString(target *Node, value string) error {
	if n.Kind == SegmentNode && n.Name == mshSegmentID && (target.Name == "MSH_1" || target.Name == "MSH_2") {
		// MSH-1/MSH-2 are the delimiter declaration itself: stored
		// literally, never unescaped, exactly as the parser stores them.
		target.Value = value
		target.Children = nil
		return nil
	}
	if target.IsScalar() {
		decoded, err := target.ctx.delims.Unescape(value)
		if err != nil {
			return newNodeError(target, err)
		}
		if target.ctx.level == Strict && target.DataType != "" && target.ctx.registry != nil {
			constraints, err := target.ctx.registry.BaseConstraints(target.DataType)
			if err == nil {
				if err := constraints.Accepts(decoded); err != nil {
					if constraints.MaxLength > 0 && len(decoded) > constraints.MaxLength {
						return newNodeError(target, fmt.Errorf("%w: %v", ErrMaxLengthReached, err))
					}
					return newNodeError(target, fmt.Errorf("%w: %v", ErrInvalidValue, err))
				}
			}
		}
		target.Value = decoded
		target.Children = nil
		return nil
	}

	subtree, err := parseSubtree(target.ctx, target.Kind, target.Name, value)
	if err != nil {
		return newNodeError(target, err)
	}
	target.Children = subtree.Children
	target.DataType = subtree.DataType
	target.Value = ""
	for _, c := range target.Children {
		c.Parent = target
		c.reparentTree(target.ctx)
	}
	return nil
}
