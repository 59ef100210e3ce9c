package hl7

import (
	"fmt"
	"strconv"
	"strings"
)

// ToER7 encodes n back to wire text. Without an argument it uses the
// tree's own delimiter set; an explicit Delimiters argument re-encodes
// under a different separator set without mutating the tree.
func (n *Node) ToER7(delims ...Delimiters) (string, error) {
	d := n.ctx.delims
	if len(delims) > 0 {
		d = delims[0]
	}
	return n.encode(d)
}

func (n *Node) encode(d Delimiters) (string, error) {
	switch n.Kind {
	case MessageNode, GroupNode:
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			s, err := c.encode(d)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, string(Segment)), nil
	case SegmentNode:
		return encodeSegment(n, d)
	case FieldNode:
		return encodeField(n, d), nil
	case ComponentNode:
		return encodeComponent(n, d), nil
	case SubComponentNode:
		return d.Escape(n.Value), nil
	default:
		return "", fmt.Errorf("%w: cannot encode node kind %s", ErrOperationNotAllowed, n.Kind)
	}
}

// encodeSegment renders a Segment's field slots in wire order. A field
// named <SEG>_<n> is written at wire position n, wherever it sits among
// the children, and positions with no field are left empty; a field
// without such a name takes the next position, sharing it with an
// immediately preceding field of the same name. Repetitions of one field
// are joined with the repetition separator into a single slot. Trailing
// empty slots are trimmed; MSH's first two fields are the delimiter
// declaration itself and are written out literally, never escaped or
// decomposed.
func encodeSegment(seg *Node, d Delimiters) (string, error) {
	var reps [][]string
	for i, f := range seg.Children {
		pos := len(reps)
		if n, err := strconv.Atoi(strings.TrimPrefix(f.Name, seg.Name+"_")); err == nil && n > 0 && strings.HasPrefix(f.Name, seg.Name+"_") {
			pos = n - 1
		} else if i > 0 && seg.Children[i-1].Name == f.Name {
			pos--
		}
		for len(reps) <= pos {
			reps = append(reps, nil)
		}
		reps[pos] = append(reps[pos], encodeSegmentField(seg, f, d))
	}
	slots := make([]string, len(reps))
	for i, r := range reps {
		slots[i] = strings.Join(r, string(d.Repetition))
	}
	for len(slots) > 0 && slots[len(slots)-1] == "" {
		slots = slots[:len(slots)-1]
	}

	if seg.Name == mshSegmentID {
		if len(slots) < 2 {
			return "", fmt.Errorf("%w: MSH segment missing field/encoding-character fields", ErrInvalidEncodingChars)
		}
		rest := slots[2:]
		out := seg.Name + slots[0] + slots[1]
		if len(rest) > 0 {
			out += string(d.Field) + strings.Join(rest, string(d.Field))
		}
		return out, nil
	}
	out := seg.Name
	if len(slots) > 0 {
		out += string(d.Field) + strings.Join(slots, string(d.Field))
	}
	return out, nil
}

func encodeSegmentField(seg, field *Node, d Delimiters) string {
	if seg.Name == mshSegmentID && field.Name == "MSH_1" {
		return string(d.Field)
	}
	if seg.Name == mshSegmentID && field.Name == "MSH_2" {
		return d.EncodingCharacters()
	}
	return encodeField(field, d)
}

func encodeField(n *Node, d Delimiters) string {
	if len(n.Children) == 0 {
		return d.Escape(n.Value)
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = encodeComponent(c, d)
	}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, string(d.Component))
}

func encodeComponent(n *Node, d Delimiters) string {
	if len(n.Children) == 0 {
		return d.Escape(n.Value)
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = d.Escape(c.Value)
	}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, string(d.SubComponent))
}
