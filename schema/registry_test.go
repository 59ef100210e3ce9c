package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuildV23_SegmentLookup(t *testing.T) {
	reg := BuildV23()

	kind, children, _, found := reg.LookupStructure("PID")
	if !found {
		t.Fatalf("expected PID to be found")
	}
	if kind != SegmentKind {
		t.Fatalf("expected SegmentKind, got %s", kind)
	}
	if len(children) == 0 {
		t.Fatalf("expected PID to have fields")
	}
}

func TestBuildV23_FieldDecomposesToComposite(t *testing.T) {
	reg := BuildV23()

	children, err := reg.ChildrenOf("PID_5")
	if err != nil {
		t.Fatalf("ChildrenOf(PID_5): %v", err)
	}
	found := false
	for _, c := range children {
		if c.Name == "XPN_1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected PID_5 (XPN) children to include XPN_1, got %+v", children)
	}
}

func TestBuildV23_ResolveLongName(t *testing.T) {
	reg := BuildV23()

	name, err := reg.ResolveLongName("PID", "patient_name")
	if err != nil {
		t.Fatalf("ResolveLongName: %v", err)
	}
	if name != "PID_5" {
		t.Fatalf("expected PID_5, got %s", name)
	}

	// Case-insensitivity.
	name, err = reg.ResolveLongName("PID", "PATIENT_NAME")
	if err != nil {
		t.Fatalf("ResolveLongName (case-insensitive): %v", err)
	}
	if name != "PID_5" {
		t.Fatalf("expected PID_5, got %s", name)
	}
}

func TestBuildV23_Alias(t *testing.T) {
	reg := BuildV23()

	kind, _, dataType, found := reg.LookupStructure("PID_5_1")
	if !found {
		t.Fatalf("expected PID_5_1 alias to resolve")
	}
	if kind != ComponentKind {
		t.Fatalf("expected ComponentKind for alias, got %s", kind)
	}
	if dataType != "FN" {
		t.Fatalf("expected FN data type, got %s", dataType)
	}
}

func TestBuildV23_IsBase(t *testing.T) {
	reg := BuildV23()

	if !reg.IsBase("ST") {
		t.Fatalf("expected ST to be a base type")
	}
	if reg.IsBase("CX") {
		t.Fatalf("expected CX to be a composite type, not base")
	}
}

func TestBuildV23_BaseConstraints(t *testing.T) {
	reg := BuildV23()

	c, err := reg.BaseConstraints("ST")
	if err != nil {
		t.Fatalf("BaseConstraints(ST): %v", err)
	}
	if c.MaxLength != 200 {
		t.Fatalf("expected max length 200, got %d", c.MaxLength)
	}

	longValue := strings.Repeat("a", 201)
	if err := c.Accepts(longValue); err == nil {
		t.Fatalf("expected 201-byte value to exceed ST max length")
	}
}

func TestLoadVersion(t *testing.T) {
	doc := strings.NewReader(`
version: "2.3"
baseTypes:
  ST:
    maxLength: 200
segments:
  ZZZ:
    longName: custom_segment
    fields:
      - name: ZZZ_1
        longName: custom_field
        dataType: ST
        min: 0
        max: 1
messages:
  ZZZ_MSG:
    children:
      - name: ZZZ
        min: 1
        max: 1
`)
	reg, err := LoadVersion(doc)
	if err != nil {
		t.Fatalf("LoadVersion: %v", err)
	}
	if reg.Version() != V23 {
		t.Fatalf("expected version 2.3, got %s", reg.Version())
	}
	kind, _, _, found := reg.LookupStructure("ZZZ")
	if !found || kind != SegmentKind {
		t.Fatalf("expected ZZZ segment to load, got kind=%s found=%v", kind, found)
	}
}

func TestLoadVersion_RejectsUnsupportedVersion(t *testing.T) {
	doc := strings.NewReader(`version: "9.9"`)
	if _, err := LoadVersion(doc); err == nil {
		t.Fatalf("expected error for unsupported version")
	}
}

func TestKind_JSONRoundTrip(t *testing.T) {
	for _, k := range []Kind{Unknown, MessageKind, GroupKind, SegmentKind, FieldKind, ComponentKind, SubComponentKind} {
		b, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", k, err)
		}
		if want := `"` + k.String() + `"`; string(b) != want {
			t.Fatalf("Marshal(%s) = %s, want %s", k, b, want)
		}
		var got Kind
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", b, err)
		}
		if got != k {
			t.Fatalf("round-trip mismatch: got %s, want %s", got, k)
		}
	}
}

func TestKind_UnmarshalJSONRejectsUnknownName(t *testing.T) {
	var k Kind
	if err := json.Unmarshal([]byte(`"NotAKind"`), &k); err == nil {
		t.Fatalf("expected an error for an unrecognized Kind name")
	}
}
