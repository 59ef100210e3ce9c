package hl7

import (
	"testing"

	"github.com/arcward/hl7v2/schema"
)

func failOnErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// testRegistry returns a small, self-contained Registry exercising the
// Message, Group, Segment, Field and Component node kinds (no component
// type here decomposes into SubComponents), repeating fields, and the
// aliased field-composite naming convention.
func testRegistry() schema.Provider {
	b := schema.NewBuilder(schema.V23)

	b.BaseType("ST", schema.BaseConstraints{MaxLength: 200}).
		BaseType("SI", schema.BaseConstraints{MaxLength: 4}).
		BaseType("ID", schema.BaseConstraints{MaxLength: 2})

	b.Composite("HD",
		schema.ChildSpec{Name: "HD_1", LongName: "namespace_id", Min: 0, Max: 1, DataType: "ST"},
		schema.ChildSpec{Name: "HD_2", LongName: "universal_id", Min: 0, Max: 1, DataType: "ST"},
	)
	b.Composite("XPN",
		schema.ChildSpec{Name: "XPN_1", LongName: "family_name", Min: 0, Max: 1, DataType: "ST"},
		schema.ChildSpec{Name: "XPN_2", LongName: "given_name", Min: 0, Max: 1, DataType: "ST"},
	)

	b.Segment("MSH", "message_header",
		schema.ChildSpec{Name: "MSH_1", LongName: "field_separator", Min: 1, Max: 1, DataType: "ST"},
		schema.ChildSpec{Name: "MSH_2", LongName: "encoding_characters", Min: 1, Max: 1, DataType: "ST"},
		schema.ChildSpec{Name: "MSH_3", LongName: "sending_application", Min: 0, Max: 1, DataType: "HD"},
		schema.ChildSpec{Name: "MSH_9", LongName: "message_type", Min: 1, Max: 1, DataType: "ST"},
		schema.ChildSpec{Name: "MSH_10", LongName: "message_control_id", Min: 1, Max: 1, DataType: "ST"},
		schema.ChildSpec{Name: "MSH_11", LongName: "processing_id", Min: 1, Max: 1, DataType: "ID"},
		schema.ChildSpec{Name: "MSH_12", LongName: "version_id", Min: 1, Max: 1, DataType: "ID"},
	)
	b.Segment("PID", "patient_identification",
		schema.ChildSpec{Name: "PID_1", LongName: "set_id", Min: 0, Max: 1, DataType: "SI"},
		schema.ChildSpec{Name: "PID_5", LongName: "patient_name", Min: 1, Max: schema.Unbounded, DataType: "XPN"},
	)
	b.Segment("NK1", "next_of_kin",
		schema.ChildSpec{Name: "NK1_1", LongName: "set_id", Min: 1, Max: 1, DataType: "SI"},
		schema.ChildSpec{Name: "NK1_2", LongName: "name", Min: 0, Max: 1, DataType: "XPN"},
	)

	b.Alias("PID_5_1", "XPN_1")
	b.Alias("PID_5_2", "XPN_2")

	b.Group("INSURANCE",
		schema.ChildSpec{Name: "NK1", Min: 1, Max: 1},
	)

	b.Message("ADT_A01",
		schema.ChildSpec{Name: "MSH", Min: 1, Max: 1},
		schema.ChildSpec{Name: "PID", Min: 1, Max: 1},
		schema.ChildSpec{Name: "INSURANCE", Min: 0, Max: schema.Unbounded},
	)

	return b.Build()
}
