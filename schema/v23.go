package schema

import "regexp"

var dtmPattern = regexp.MustCompile(`^[0-9]{4,14}(\.[0-9]{1,4})?([+-][0-9]{4})?$`)
var numericPattern = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

// BuildV23 returns a reference Registry for HL7 v2.3, covering the MSH,
// EVN, PID and PV1 segments of ADT_A01 plus the composite and base data
// types they exercise: a compact, hand-built reference table rather than a
// transcribed standard, sufficient to exercise parsing, printing,
// grouping, aliasing and validation end to end. A complete per-version
// table set is left to whatever data source a deployment wires in.
func BuildV23() *Registry {
	b := NewBuilder(V23)

	b.BaseType("ST", BaseConstraints{MaxLength: 200}).
		BaseType("SI", BaseConstraints{MaxLength: 4, Regex: numericPattern}).
		BaseType("NM", BaseConstraints{MaxLength: 16, Regex: numericPattern}).
		BaseType("ID", BaseConstraints{MaxLength: 2}).
		BaseType("IS", BaseConstraints{MaxLength: 20}).
		BaseType("DTM", BaseConstraints{MaxLength: 24, Regex: dtmPattern}).
		BaseType("TS", BaseConstraints{MaxLength: 26, Regex: dtmPattern}).
		BaseType("FN", BaseConstraints{MaxLength: 50})

	b.Composite("HD",
		ChildSpec{Name: "HD_1", LongName: "namespace_id", Min: 0, Max: 1, DataType: "IS"},
		ChildSpec{Name: "HD_2", LongName: "universal_id", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "HD_3", LongName: "universal_id_type", Min: 0, Max: 1, DataType: "ID"},
	)

	b.Composite("CX",
		ChildSpec{Name: "CX_1", LongName: "id", Min: 1, Max: 1, DataType: "ST"},
		ChildSpec{Name: "CX_2", LongName: "check_digit", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "CX_3", LongName: "check_digit_scheme", Min: 0, Max: 1, DataType: "ID"},
		ChildSpec{Name: "CX_4", LongName: "assigning_authority", Min: 0, Max: 1, DataType: "HD"},
		ChildSpec{Name: "CX_5", LongName: "identifier_type_code", Min: 0, Max: 1, DataType: "IS"},
	)

	b.Composite("XPN",
		ChildSpec{Name: "XPN_1", LongName: "family_name", Min: 0, Max: 1, DataType: "FN"},
		ChildSpec{Name: "XPN_2", LongName: "given_name", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XPN_3", LongName: "middle_initial_or_name", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XPN_4", LongName: "suffix", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XPN_5", LongName: "prefix", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XPN_7", LongName: "name_type_code", Min: 0, Max: 1, DataType: "ID"},
	)

	b.Composite("XAD",
		ChildSpec{Name: "XAD_1", LongName: "street_address", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XAD_2", LongName: "other_designation", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XAD_3", LongName: "city", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XAD_4", LongName: "state_or_province", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XAD_5", LongName: "zip_or_postal_code", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "XAD_6", LongName: "country", Min: 0, Max: 1, DataType: "ID"},
	)

	b.Segment("MSH", "message_header",
		ChildSpec{Name: "MSH_1", LongName: "field_separator", Min: 1, Max: 1, DataType: "ST"},
		ChildSpec{Name: "MSH_2", LongName: "encoding_characters", Min: 1, Max: 1, DataType: "ST"},
		ChildSpec{Name: "MSH_3", LongName: "sending_application", Min: 0, Max: 1, DataType: "HD"},
		ChildSpec{Name: "MSH_4", LongName: "sending_facility", Min: 0, Max: 1, DataType: "HD"},
		ChildSpec{Name: "MSH_5", LongName: "receiving_application", Min: 0, Max: 1, DataType: "HD"},
		ChildSpec{Name: "MSH_6", LongName: "receiving_facility", Min: 0, Max: 1, DataType: "HD"},
		ChildSpec{Name: "MSH_7", LongName: "date_time_of_message", Min: 1, Max: 1, DataType: "TS"},
		ChildSpec{Name: "MSH_8", LongName: "security", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "MSH_9", LongName: "message_type", Min: 1, Max: 1, DataType: "ST"},
		ChildSpec{Name: "MSH_10", LongName: "message_control_id", Min: 1, Max: 1, DataType: "ST"},
		ChildSpec{Name: "MSH_11", LongName: "processing_id", Min: 1, Max: 1, DataType: "ID"},
		ChildSpec{Name: "MSH_12", LongName: "version_id", Min: 1, Max: 1, DataType: "ID"},
	)

	b.Segment("EVN", "event_type",
		ChildSpec{Name: "EVN_1", LongName: "event_type_code", Min: 0, Max: 1, DataType: "ID"},
		ChildSpec{Name: "EVN_2", LongName: "recorded_date_time", Min: 1, Max: 1, DataType: "TS"},
	)

	b.Segment("PID", "patient_identification",
		ChildSpec{Name: "PID_1", LongName: "set_id", Min: 0, Max: 1, DataType: "SI"},
		ChildSpec{Name: "PID_2", LongName: "patient_id", Min: 0, Max: 1, DataType: "CX"},
		ChildSpec{Name: "PID_3", LongName: "patient_identifier_list", Min: 1, Max: Unbounded, DataType: "CX"},
		ChildSpec{Name: "PID_5", LongName: "patient_name", Min: 1, Max: Unbounded, DataType: "XPN"},
		ChildSpec{Name: "PID_7", LongName: "date_of_birth", Min: 0, Max: 1, DataType: "TS"},
		ChildSpec{Name: "PID_8", LongName: "sex", Min: 0, Max: 1, DataType: "IS"},
		ChildSpec{Name: "PID_11", LongName: "patient_address", Min: 0, Max: Unbounded, DataType: "XAD"},
	)

	b.Segment("PV1", "patient_visit",
		ChildSpec{Name: "PV1_1", LongName: "set_id", Min: 0, Max: 1, DataType: "SI"},
		ChildSpec{Name: "PV1_2", LongName: "patient_class", Min: 1, Max: 1, DataType: "IS"},
		ChildSpec{Name: "PV1_3", LongName: "assigned_patient_location", Min: 0, Max: 1, DataType: "ST"},
		ChildSpec{Name: "PV1_19", LongName: "visit_number", Min: 0, Max: 1, DataType: "CX"},
	)

	// The component-aliased field naming convention, e.g. PID_5_1
	// resolving to the same entry as XPN_1.
	b.Alias("PID_5_1", "XPN_1")
	b.Alias("PID_5_2", "XPN_2")
	b.Alias("PID_3_1", "CX_1")
	b.Alias("PID_3_4", "CX_4")

	b.Message("ADT_A01",
		ChildSpec{Name: "MSH", Min: 1, Max: 1},
		ChildSpec{Name: "EVN", Min: 1, Max: 1},
		ChildSpec{Name: "PID", Min: 1, Max: 1},
		ChildSpec{Name: "PV1", Min: 1, Max: 1},
	)

	return b.Build()
}
