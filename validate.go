package hl7

import (
	"errors"
	"fmt"

	"github.com/arcward/hl7v2/schema"
)

// Validate walks the subtree rooted at n and reports every schema
// violation it finds: unknown names, child legality, cardinality, scalar
// data-type conformance, and MSH integrity. Unlike mutation, which a
// Strict tree refuses outright, Validate always runs to completion and
// reports everything it finds, regardless of the tree's own
// ValidationLevel — it is the single place a Lenient tree's accumulated
// looseness becomes visible.
func (n *Node) Validate() []*ValidationError {
	var errs []*ValidationError
	n.validateInto(&errs)
	return errs
}

// JoinValidationErrors collapses errs into a single error via
// errors.Join, for callers that just want a pass/fail result from
// Validate rather than the individual violations.
func JoinValidationErrors(errs []*ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

func (n *Node) validateInto(errs *[]*ValidationError) {
	if n.ctx.registry != nil && n.Name != "" {
		n.checkKnownName(errs)
		n.checkCardinality(errs)
		n.checkDataType(errs)
		n.checkMissingChildren(errs)
	}
	if n.Kind == MessageNode {
		checkMSHPresent(n, errs)
	}
	if n.Kind == SegmentNode && n.Name == mshSegmentID {
		validateMSH(n, errs)
	}
	for _, c := range n.Children {
		c.validateInto(errs)
	}
}

// checkMSHPresent reports a missing MSH segment at the message root. MSH
// is the one segment every ER7 message must carry directly, regardless of
// schema: without it there is no delimiter declaration to parse or
// validate anything else against.
func checkMSHPresent(msg *Node, errs *[]*ValidationError) {
	for _, c := range msg.Children {
		if c.Kind == SegmentNode && c.Name == mshSegmentID {
			return
		}
	}
	*errs = append(*errs, &ValidationError{
		Path: msg.Path(), Kind: msg.Kind,
		Err: fmt.Errorf("%s: message has no MSH segment: %w", mshSegmentID, ErrChildNotValid),
	})
}

func (n *Node) checkKnownName(errs *[]*ValidationError) {
	if _, _, _, found := n.ctx.registry.LookupStructure(n.Name); found {
		return
	}
	if _, err := n.ctx.registry.DataTypeOf(n.Name); err == nil {
		return
	}
	*errs = append(*errs, &ValidationError{
		Path: n.Path(), Kind: n.Kind,
		Err: fmt.Errorf("%s: %w", n.Name, ErrInvalidName),
	})
}

// checkCardinality reports a parent's child-count violations exactly
// once, at the first occurrence of a repeated name, to avoid reporting
// the same shortfall once per sibling.
func (n *Node) checkCardinality(errs *[]*ValidationError) {
	if n.Parent == nil || n.Occurrence() != 0 {
		return
	}
	spec, ok := n.Parent.childSpec(n.Name)
	if !ok {
		if n.Parent.Name != "" {
			*errs = append(*errs, &ValidationError{
				Path: n.Parent.Path(), Kind: n.Parent.Kind,
				Err: fmt.Errorf("%s: %w", n.Name, ErrChildNotValid),
			})
		}
		return
	}
	count := len(n.Parent.occurrencesOf(n.Name))
	if count < spec.Min {
		*errs = append(*errs, &ValidationError{
			Path: n.Parent.Path(), Kind: n.Parent.Kind,
			Err: fmt.Errorf("%s: need at least %d, found %d: %w", n.Name, spec.Min, count, ErrChildNotValid),
		})
	}
	if spec.Max != schema.Unbounded && count > spec.Max {
		*errs = append(*errs, &ValidationError{
			Path: n.Parent.Path(), Kind: n.Parent.Kind,
			Err: fmt.Errorf("%s: at most %d allowed, found %d: %w", n.Name, spec.Max, count, ErrMaxChildLimitReached),
		})
	}
}

// checkMissingChildren reports each schema child of n with a nonzero
// minimum that n has no occurrence of at all; checkCardinality only runs
// on children that are present. An empty Field or Component is not
// checked for its components.
func (n *Node) checkMissingChildren(errs *[]*ValidationError) {
	if n.IsScalar() || (len(n.Children) == 0 && (n.Kind == FieldNode || n.Kind == ComponentNode)) {
		return
	}
	specs, _ := n.ctx.registry.ChildrenOf(n.Name)
	for _, spec := range specs {
		if spec.Min > 0 && len(n.occurrencesOf(spec.Name)) == 0 {
			*errs = append(*errs, &ValidationError{
				Path: n.Path(), Kind: n.Kind,
				Err: fmt.Errorf("%s: need at least %d, found 0: %w", spec.Name, spec.Min, ErrChildNotValid),
			})
		}
	}
}

func (n *Node) checkDataType(errs *[]*ValidationError) {
	if !n.IsScalar() || n.DataType == "" {
		return
	}
	constraints, err := n.ctx.registry.BaseConstraints(n.DataType)
	if err != nil {
		return
	}
	if err := constraints.Accepts(n.Value); err != nil {
		*errs = append(*errs, &ValidationError{Path: n.Path(), Kind: n.Kind, Err: err})
	}
}

// validateMSH checks that the MSH segment's own delimiter declaration
// (MSH-1/MSH-2) matches the tree's delimiter set, and that its version
// field (MSH-12) matches the registry the tree was built against.
func validateMSH(msh *Node, errs *[]*ValidationError) {
	f1, err := msh.Get("MSH_1")
	switch {
	case err != nil || f1.Value == "":
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-1: field separator missing: %w", ErrInvalidEncodingChars),
		})
	case len(f1.Value) != 1:
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-1: field separator must be exactly one character: %w", ErrInvalidEncodingChars),
		})
	case f1.Value[0] != msh.ctx.delims.Field:
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-1: field separator %q does not match the tree's delimiter set %q: %w",
				f1.Value, string(msh.ctx.delims.Field), ErrInvalidEncodingChars),
		})
	}

	f2, err := msh.Get("MSH_2")
	switch {
	case err != nil || f2.Value == "":
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-2: encoding characters missing: %w", ErrInvalidEncodingChars),
		})
	case len(f2.Value) != 4:
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-2: encoding characters field must be exactly four characters: %w", ErrInvalidEncodingChars),
		})
	case f2.Value != msh.ctx.delims.EncodingCharacters():
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-2: encoding characters %q do not match the tree's delimiter set %q: %w",
				f2.Value, msh.ctx.delims.EncodingCharacters(), ErrInvalidEncodingChars),
		})
	}

	if msh.ctx.registry == nil {
		return
	}
	version := string(msh.ctx.registry.Version())
	f12, err := msh.Get("MSH_12")
	switch {
	case err != nil || f12.Value == "":
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-12: version ID missing, expected %q: %w", version, ErrInvalidValue),
		})
	case f12.Value != version:
		*errs = append(*errs, &ValidationError{
			Path: msh.Path(), Kind: msh.Kind,
			Err: fmt.Errorf("MSH-12: version ID %q does not match the tree's schema version %q: %w",
				f12.Value, version, ErrInvalidValue),
		})
	}
}
