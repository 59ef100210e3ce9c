package hl7

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNode_SetAndGetComposite(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()))
	failOnErr(t, err)

	pid, err := msg.AddSegment("PID")
	failOnErr(t, err)

	failOnErr(t, pid.Set("PID_5", "Doe^John"))

	field, err := pid.Get("PID_5")
	failOnErr(t, err)
	if field.DataType != "XPN" {
		t.Fatalf("expected PID_5 data type XPN, got %q", field.DataType)
	}

	family, err := field.Get("XPN_1")
	failOnErr(t, err)
	assertEqual(t, family.Value, "Doe")

	given, err := field.Get("given_name") // long-name resolution
	failOnErr(t, err)
	assertEqual(t, given.Value, "John")
}

func TestNode_GetBareReadDoesNotAutovivify(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()))
	failOnErr(t, err)
	pid, err := msg.AddSegment("PID")
	failOnErr(t, err)

	if _, err := pid.Get("PID_5"); err != nil {
		t.Fatalf("expected a schema-legal bare read to succeed, got %v", err)
	}
	if len(pid.Children) != 0 {
		t.Fatalf("expected bare read to leave PID childless, found %d children", len(pid.Children))
	}
}

func TestNode_RepetitionDensity(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()))
	failOnErr(t, err)
	pid, err := msg.AddSegment("PID")
	failOnErr(t, err)

	failOnErr(t, pid.Set("PID_5", "Doe^John", 0))
	failOnErr(t, pid.Set("PID_5", "Smith^Jane", 2))

	matches := pid.occurrencesOf("PID_5")
	if len(matches) != 3 {
		t.Fatalf("expected 3 dense PID_5 occurrences, got %d", len(matches))
	}
	if matches[1].Value != "" || len(matches[1].Children) != 0 {
		t.Fatalf("expected the skipped occurrence to be an empty placeholder, got %+v", matches[1])
	}
}

func TestNode_DetachAndReattachCrossAssignment(t *testing.T) {
	reg := testRegistry()
	msgA, err := NewMessage("ADT_A01", WithRegistry(reg))
	failOnErr(t, err)
	pidA, err := msgA.AddSegment("PID")
	failOnErr(t, err)
	failOnErr(t, pidA.Set("PID_5", "Doe^John"))
	nameField, err := pidA.Get("PID_5")
	failOnErr(t, err)

	msgB, err := NewMessage("ADT_A01", WithRegistry(reg))
	failOnErr(t, err)
	nk1, err := msgB.AddSegment("NK1")
	failOnErr(t, err)
	failOnErr(t, nk1.Set("NK1_1", "1"))

	failOnErr(t, nk1.Set("NK1_2", nameField))

	if len(pidA.occurrencesOf("PID_5")) != 0 {
		t.Fatalf("expected PID_5 to be detached from its original parent")
	}
	moved, err := nk1.Get("NK1_2")
	failOnErr(t, err)
	if moved != nameField {
		t.Fatalf("expected the moved node to retain its identity")
	}
	if moved.Name != "NK1_2" {
		t.Fatalf("expected the moved node to take its new slot's name, got %q", moved.Name)
	}
	family, err := moved.Get("XPN_1")
	failOnErr(t, err)
	assertEqual(t, family.Value, "Doe")
}

func TestNode_Path(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()))
	failOnErr(t, err)
	pid, err := msg.AddSegment("PID")
	failOnErr(t, err)
	failOnErr(t, pid.Set("PID_5", "Doe^John", 0))
	failOnErr(t, pid.Set("PID_5", "Roe^Richard", 1))

	second, err := pid.Get("PID_5", 1)
	failOnErr(t, err)
	assertEqual(t, second.Path(), "/ADT_A01/PID/PID_5[1]")
}

func TestNode_LenientAcceptsUnknownName(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()))
	failOnErr(t, err)
	pid, err := msg.AddSegment("PID")
	failOnErr(t, err)

	if err := pid.Set("ZZZ_LOCAL", "custom"); err != nil {
		t.Fatalf("expected lenient mode to accept an unknown child name, got %v", err)
	}
}

func TestNode_StrictRejectsUnknownName(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()), WithValidationLevel(Strict))
	failOnErr(t, err)
	pid, err := msg.AddSegment("PID")
	failOnErr(t, err)

	err = pid.Set("ZZZ_LOCAL", "custom")
	if !errors.Is(err, ErrChildNotFound) {
		t.Fatalf("expected ErrChildNotFound, got %v", err)
	}
}

func TestValidationLevel_JSONRoundTrip(t *testing.T) {
	for _, l := range []ValidationLevel{Lenient, Strict} {
		b, err := json.Marshal(l)
		failOnErr(t, err)
		assertEqual(t, string(b), `"`+l.String()+`"`)

		var got ValidationLevel
		failOnErr(t, json.Unmarshal(b, &got))
		if got != l {
			t.Fatalf("round-trip mismatch: got %s, want %s", got, l)
		}
	}
}

func TestValidationLevel_UnmarshalJSONRejectsUnknownName(t *testing.T) {
	var l ValidationLevel
	if err := json.Unmarshal([]byte(`"WHATEVER"`), &l); err == nil {
		t.Fatalf("expected an error for an unrecognized ValidationLevel name")
	}
}

func TestNode_StrictRejectsCardinalityOverflow(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()), WithValidationLevel(Strict))
	failOnErr(t, err)

	if _, err := msg.AddSegment("PID"); err != nil {
		t.Fatalf("first PID should be legal: %v", err)
	}
	if _, err := msg.AddSegment("PID"); err == nil {
		t.Fatalf("expected a second PID (max 1) to be rejected under Strict")
	} else if !errors.Is(err, ErrMaxChildLimitReached) {
		t.Fatalf("expected ErrMaxChildLimitReached, got %v", err)
	}
}
