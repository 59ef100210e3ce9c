package hl7

import (
	"log"

	"github.com/arcward/hl7v2/schema"
)

// groupSegments assembles a flat sequence of already-built Segment nodes
// into a Message tree, greedily matching them against structureName's
// schema-declared children in order. A child spec naming a Group is
// itself matched by recursively greedy-matching the group's own children
// against the same segment stream; a Group occurrence is matched when its
// children, walked once in order, consume at least one segment. Min
// cardinalities are not consulted while grouping.
//
// Apart from an unknown structure name in Strict mode, grouping never
// fails the parse: a segment stream that doesn't fully
// satisfy the schema (missing a required segment, or carrying one the
// schema doesn't expect at that position) is still assembled, with
// unmatched segments appended flat at the end. Structural shortfalls are
// reported later by Validate, not by parsing.
func groupSegments(ctx *treeContext, structureName string, segments []*Node) (*Node, error) {
	root := &Node{Kind: MessageNode, Name: structureName, ctx: ctx}

	if ctx.registry == nil {
		root.Children = segments
		for _, s := range segments {
			s.Parent = root
		}
		return root, nil
	}

	kind, children, _, found := ctx.registry.LookupStructure(structureName)
	if !found || kind != MessageNode {
		if ctx.level == Strict {
			return nil, newNodeError(root, ErrInvalidName)
		}
		root.Children = segments
		for _, s := range segments {
			s.Parent = root
		}
		return root, nil
	}

	matched, consumed := consumeSpecs(ctx, children, segments)
	leftover := segments[consumed:]
	for _, s := range leftover {
		log.Printf("appending orphan segment %s outside the %s structure", s.Name, structureName)
	}

	root.Children = append(matched, leftover...)
	for _, c := range root.Children {
		c.Parent = root
	}
	return root, nil
}

// consumeSpecs greedily matches specs, in order, against the front of
// segs. It returns the matched nodes (Segment nodes reused from segs, or
// freshly built Group nodes) and the count of elements of segs consumed.
func consumeSpecs(ctx *treeContext, specs []schema.ChildSpec, segs []*Node) ([]*Node, int) {
	var matched []*Node
	i := 0
	for _, spec := range specs {
		count := 0
		for i < len(segs) {
			child, advanced := matchOneOccurrence(ctx, spec, segs, i)
			if advanced == 0 {
				break
			}
			matched = append(matched, child)
			i += advanced
			count++
			if spec.Max != schema.Unbounded && count >= spec.Max {
				break
			}
		}
	}
	return matched, i
}

// matchOneOccurrence attempts to consume one occurrence of spec starting
// at segs[at]. advanced is the number of elements of segs consumed (0 if
// spec did not match here at all).
func matchOneOccurrence(ctx *treeContext, spec schema.ChildSpec, segs []*Node, at int) (*Node, int) {
	if at >= len(segs) {
		return nil, 0
	}
	kind, children, _, found := ctx.registry.LookupStructure(spec.Name)
	if found && kind == schema.GroupKind {
		sub, consumed := consumeSpecs(ctx, children, segs[at:])
		if consumed == 0 {
			return nil, 0
		}
		grp := &Node{Kind: GroupNode, Name: spec.Name, ctx: ctx, Children: sub}
		for _, c := range sub {
			c.Parent = grp
		}
		return grp, consumed
	}
	if segs[at].Name != spec.Name {
		return nil, 0
	}
	return segs[at], 1
}
