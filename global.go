package hl7

// mshSegmentID is the only segment name the core treats specially: its
// first two fields carry the delimiter convention itself rather than
// schema-governed data.
const mshSegmentID = "MSH"

// mshIndex* are the HL7 field numbers (MSH-1 is the field separator) of MSH fields whose meaning this
// package hard-codes, either because the wire format fixes them (field
// separator, encoding characters) or because Message's convenience
// accessors expose them by name.
const (
	mshIndexFieldSeparator  = 1
	mshIndexEncodingChars   = 2
	mshIndexSendingApp      = 3
	mshIndexSendingFacility = 4
	mshIndexReceivingApp    = 5
	mshIndexReceivingFac    = 6
	mshIndexDateTime        = 7
	mshIndexMessageType     = 9
	mshIndexControlID       = 10
	mshIndexProcessingID    = 11
	mshIndexVersionID       = 12
)

// isValidSegmentName reports whether name matches the wire-level segment
// name charset: exactly three uppercase letters or digits.
func isValidSegmentName(name string) bool {
	if len(name) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		c := name[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
