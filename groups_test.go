package hl7

import "testing"

func buildADTSegments(t *testing.T) (*treeContext, []*Node) {
	t.Helper()
	ctx := &treeContext{delims: DefaultDelimiters(), level: Lenient, registry: testRegistry()}
	var segs []*Node
	for _, raw := range []string{
		"MSH|^~\\&|LAB||||20240101||ADT_A01|CTRL123|P|2.3",
		"PID|1||10006579^^^1^MR^1||Doe^John",
		"NK1|1|Roe^Richard",
	} {
		seg, err := buildSegment(ctx, raw)
		failOnErr(t, err)
		segs = append(segs, seg)
	}
	return ctx, segs
}

func TestGroupSegments_WrapsRepeatedGroupMembers(t *testing.T) {
	ctx, segs := buildADTSegments(t)
	root, err := groupSegments(ctx, "ADT_A01", segs)
	failOnErr(t, err)

	if len(root.Children) != 3 {
		t.Fatalf("expected MSH, PID and one INSURANCE group, got %d children", len(root.Children))
	}
	assertEqual(t, root.Children[0].Name, "MSH")
	assertEqual(t, root.Children[1].Name, "PID")

	insurance := root.Children[2]
	assertEqual(t, insurance.Name, "INSURANCE")
	if insurance.Kind != GroupNode {
		t.Fatalf("expected INSURANCE to be a Group node, got %s", insurance.Kind)
	}
	if len(insurance.Children) != 1 || insurance.Children[0].Name != "NK1" {
		t.Fatalf("expected INSURANCE to wrap a single NK1 segment, got %+v", insurance.Children)
	}
	if insurance.Children[0].Parent != insurance {
		t.Fatalf("expected the wrapped NK1 segment's Parent to point at the group")
	}
}

func TestGroupSegments_UnknownStructureFallsBackFlat(t *testing.T) {
	ctx, segs := buildADTSegments(t)
	root, err := groupSegments(ctx, "NO_SUCH_STRUCTURE", segs)
	failOnErr(t, err)
	if len(root.Children) != 3 {
		t.Fatalf("expected a flat fallback of 3 segments, got %d", len(root.Children))
	}
}

func TestGroupSegments_StrictRejectsUnknownStructure(t *testing.T) {
	ctx, segs := buildADTSegments(t)
	ctx.level = Strict
	if _, err := groupSegments(ctx, "NO_SUCH_STRUCTURE", segs); err == nil {
		t.Fatalf("expected Strict mode to reject an unresolvable message structure")
	}
}

func TestGroupSegments_WithoutRegistryStaysFlat(t *testing.T) {
	ctx := &treeContext{delims: DefaultDelimiters(), level: Lenient}
	seg, err := buildSegment(ctx, "PID|1||10006579^^^1^MR^1||Doe^John")
	failOnErr(t, err)

	root, err := groupSegments(ctx, "ADT_A01", []*Node{seg})
	failOnErr(t, err)
	if len(root.Children) != 1 || root.Children[0] != seg {
		t.Fatalf("expected the lone segment to pass through untouched")
	}
}

func TestGroupSegments_LeftoverSegmentsAppendFlat(t *testing.T) {
	ctx, segs := buildADTSegments(t)
	extra, err := buildSegment(ctx, "ZZZ|1")
	failOnErr(t, err)
	segs = append(segs, extra)

	root, err := groupSegments(ctx, "ADT_A01", segs)
	failOnErr(t, err)

	last := root.Children[len(root.Children)-1]
	assertEqual(t, last.Name, "ZZZ")
}
