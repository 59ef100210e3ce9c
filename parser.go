package hl7

import (
	"fmt"
	"strings"

	"github.com/arcward/hl7v2/schema"
)

// parseConfig carries the options common to every Parse* entry point.
type parseConfig struct {
	ctx              *treeContext
	findGroups       bool
	messageStructure string
}

func newParseConfig(opts []ParseOption) *parseConfig {
	pc := &parseConfig{
		ctx:        &treeContext{delims: DefaultDelimiters(), level: Lenient},
		findGroups: true,
	}
	for _, o := range opts {
		o(pc)
	}
	return pc
}

// ParseOption configures a Parse* call.
type ParseOption func(*parseConfig)

// WithParseRegistry supplies the Schema Registry used to resolve data
// types and, for ParseMessage, message structure.
func WithParseRegistry(p schema.Provider) ParseOption {
	return func(pc *parseConfig) { pc.ctx.registry = p }
}

// WithParseValidationLevel sets the constructed tree's validation
// discipline. Default: Lenient.
func WithParseValidationLevel(l ValidationLevel) ParseOption {
	return func(pc *parseConfig) { pc.ctx.level = l }
}

// WithParseDelimiters sets the delimiter set used by ParseSegment,
// ParseField and ParseComponent, which have no MSH of their own to read
// delimiters from. Ignored by ParseMessage, which always derives
// delimiters from the message's own MSH segment.
func WithParseDelimiters(d Delimiters) ParseOption {
	return func(pc *parseConfig) { pc.ctx.delims = d }
}

// WithFindGroups controls whether ParseMessage groups segments into the
// structure's schema-declared groups (default true) or leaves them as a
// flat sequence of Segment children directly under the Message node.
func WithFindGroups(enabled bool) ParseOption {
	return func(pc *parseConfig) { pc.findGroups = enabled }
}

// WithMessageStructure overrides the message structure name ParseMessage
// groups against, rather than deriving it from MSH-9.
func WithMessageStructure(name string) ParseOption {
	return func(pc *parseConfig) { pc.messageStructure = name }
}

// normalizeSegments splits ER7 text into per-segment strings, accepting
// \r, \n or \r\n as the segment terminator and dropping any trailing
// empty segments produced by a terminator at end of text.
func normalizeSegments(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")
	parts := strings.Split(text, "\r")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// extractMSHDelimiters reads the field separator and four encoding
// characters declared by a message's first segment.
func extractMSHDelimiters(rawMSH string) (Delimiters, error) {
	if len(rawMSH) < 9 || rawMSH[:3] != mshSegmentID {
		return Delimiters{}, fmt.Errorf("%w: message does not begin with MSH", ErrInvalidEncodingChars)
	}
	fieldSep := rawMSH[3]
	encodingChars := rawMSH[4:8]
	if rawMSH[8] != fieldSep {
		return Delimiters{}, fmt.Errorf("%w: encoding characters field not terminated", ErrInvalidEncodingChars)
	}
	return ParseEncodingChars(fieldSep, encodingChars)
}

// ParseMessage decodes a complete ER7 message. Delimiters are read from
// the message's own MSH segment and take precedence over any
// WithParseDelimiters option. Parsers never partially mutate a caller's
// existing tree: ParseMessage always builds an entirely new one.
func ParseMessage(text string, opts ...ParseOption) (*Message, error) {
	pc := newParseConfig(opts)

	segStrings := normalizeSegments(text)
	if len(segStrings) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidValue)
	}

	delims, err := extractMSHDelimiters(segStrings[0])
	if err != nil {
		return nil, err
	}
	pc.ctx.delims = delims

	segments := make([]*Node, 0, len(segStrings))
	for _, s := range segStrings {
		seg, err := buildSegment(pc.ctx, s)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	structureName := pc.messageStructure
	if structureName == "" {
		structureName = deriveStructureName(segments[0])
	}

	var root *Node
	if pc.findGroups {
		root, err = groupSegments(pc.ctx, structureName, segments)
		if err != nil {
			return nil, err
		}
	} else {
		root = &Node{Kind: MessageNode, Name: structureName, ctx: pc.ctx, Children: segments}
		for _, s := range segments {
			s.Parent = root
		}
	}
	return &Message{Node: root}, nil
}

// deriveStructureName builds a message structure name (e.g. "ADT_A01")
// from an MSH segment's MSH-9 message type field.
func deriveStructureName(msh *Node) string {
	field, err := msh.Get("MSH_9")
	if err != nil {
		return ""
	}
	if len(field.Children) == 0 {
		return field.Value
	}
	parts := make([]string, len(field.Children))
	for i, c := range field.Children {
		parts[i] = c.Value
	}
	return strings.Join(parts, "_")
}

// ParseSegment decodes one segment's worth of ER7 text into a standalone
// Segment node.
func ParseSegment(text string, opts ...ParseOption) (*Node, error) {
	pc := newParseConfig(opts)
	return buildSegment(pc.ctx, text)
}

// ParseField decodes one field's worth of ER7 text under the given field
// name into a standalone Field node.
func ParseField(text, fieldName string, opts ...ParseOption) (*Node, error) {
	pc := newParseConfig(opts)
	return parseSubtree(pc.ctx, FieldNode, fieldName, text)
}

// ParseComponent decodes one component's worth of ER7 text under the
// given component name into a standalone Component node.
func ParseComponent(text, componentName string, opts ...ParseOption) (*Node, error) {
	pc := newParseConfig(opts)
	return parseSubtree(pc.ctx, ComponentNode, componentName, text)
}

// buildSegment splits raw segment text into its Field children (and, for
// each field, Component/SubComponent children as the schema or, absent a
// schema, the presence of the next delimiter directs).
func buildSegment(ctx *treeContext, raw string) (*Node, error) {
	if len(raw) < 3 {
		return nil, fmt.Errorf("%w: segment text too short", ErrInvalidName)
	}
	name := raw[:3]
	if !isValidSegmentName(name) && ctx.level == Strict {
		return nil, fmt.Errorf("%s: %w", name, ErrInvalidName)
	}
	seg := &Node{Kind: SegmentNode, Name: name, ctx: ctx}

	var rawFields []string
	if name == mshSegmentID {
		if len(raw) < 9 {
			return nil, fmt.Errorf("%w: MSH segment too short", ErrInvalidEncodingChars)
		}
		rawFields = append(rawFields, string(ctx.delims.Field), ctx.delims.EncodingCharacters())
		if len(raw) > 9 {
			rawFields = append(rawFields, strings.Split(raw[9:], string(ctx.delims.Field))...)
		}
	} else if len(raw) > 4 {
		rawFields = strings.Split(raw[4:], string(ctx.delims.Field))
	}

	for i, rawField := range rawFields {
		fieldIndex := i + 1
		fieldName := fmt.Sprintf("%s_%d", name, fieldIndex)

		if name == mshSegmentID && fieldIndex <= 2 {
			// The field and encoding-character separators are literal
			// wire characters, never escaped or decomposed.
			seg.Children = append(seg.Children, &Node{
				Kind: FieldNode, Name: fieldName, DataType: "ST", Value: rawField, Parent: seg, ctx: ctx,
			})
			continue
		}

		dataType := ""
		if ctx.registry != nil {
			if dt, err := ctx.registry.DataTypeOf(fieldName); err == nil {
				dataType = dt
			}
		}

		for _, rp := range strings.Split(rawField, string(ctx.delims.Repetition)) {
			field, err := parseElement(ctx, FieldNode, fieldName, dataType, rp)
			if err != nil {
				return nil, err
			}
			field.Parent = seg
			seg.Children = append(seg.Children, field)
		}
	}
	return seg, nil
}

// parseSubtree resolves name's data type via the registry (if any) and
// decodes raw into a standalone node of the given Kind. Used both by the
// standalone ParseField/ParseComponent entry points and by Node.Set's
// sub-parse path for composite assignment.
func parseSubtree(ctx *treeContext, kind Kind, name, raw string) (*Node, error) {
	dataType := ""
	if ctx.registry != nil {
		if dt, err := ctx.registry.DataTypeOf(name); err == nil {
			dataType = dt
		}
	}
	return parseElement(ctx, kind, name, dataType, raw)
}

// parseElement decodes raw into a node of the given Kind/name/dataType,
// recursing into Components and SubComponents as the data type (or,
// absent a resolvable one, the presence of the next-level delimiter)
// directs.
func parseElement(ctx *treeContext, kind Kind, name, dataType, raw string) (*Node, error) {
	n := &Node{Kind: kind, Name: name, DataType: dataType, ctx: ctx}

	if isScalarForParse(ctx, kind, dataType, raw) {
		decoded, err := ctx.delims.Unescape(raw)
		if err != nil {
			return nil, err
		}
		n.Value = decoded
		return n, nil
	}

	var children []schema.ChildSpec
	if ctx.registry != nil {
		children, _ = ctx.registry.ChildrenOf(name)
	}

	switch kind {
	case FieldNode:
		for i, part := range strings.Split(raw, string(ctx.delims.Component)) {
			childName, childType := positionalChild(name, children, i)
			child, err := parseElement(ctx, ComponentNode, childName, childType, part)
			if err != nil {
				return nil, err
			}
			child.Parent = n
			n.Children = append(n.Children, child)
		}
	case ComponentNode:
		for i, part := range strings.Split(raw, string(ctx.delims.SubComponent)) {
			childName, childType := positionalChild(name, children, i)
			decoded, err := ctx.delims.Unescape(part)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, &Node{
				Kind: SubComponentNode, Name: childName, DataType: childType, Value: decoded, Parent: n, ctx: ctx,
			})
		}
	}
	return n, nil
}

// positionalChild returns the ith schema-declared child's name/data type,
// falling back to a generated "<parent>_<n>" name (or "" if parent is
// itself anonymous) when the schema has nothing to say about it.
func positionalChild(parentName string, children []schema.ChildSpec, i int) (string, string) {
	if i < len(children) {
		return children[i].Name, children[i].DataType
	}
	if parentName == "" {
		return "", ""
	}
	return fmt.Sprintf("%s_%d", parentName, i+1), ""
}

// isScalarForParse decides whether raw should be stored as a decoded
// scalar Value or decomposed into children. SubComponents are always
// scalar. Fields and Components consult the registry's base/composite
// classification when a data type is known; otherwise they fall back to
// detecting the presence of the next-level delimiter in raw, the same
// heuristic a schema-free decoder has to use.
func isScalarForParse(ctx *treeContext, kind Kind, dataType, raw string) bool {
	switch kind {
	case SubComponentNode:
		return true
	case FieldNode:
		if dataType != "" && ctx.registry != nil {
			return ctx.registry.IsBase(dataType)
		}
		return !strings.ContainsRune(raw, rune(ctx.delims.Component))
	case ComponentNode:
		if dataType != "" && ctx.registry != nil {
			return ctx.registry.IsBase(dataType)
		}
		return !strings.ContainsRune(raw, rune(ctx.delims.SubComponent))
	default:
		return true
	}
}
