// Package extract turns raw OCR tokens into the structured identity fields
// used for document comparison. Validation failures are data, not errors: a
// field that fails its format or checksum check is reported with Valid set
// to false, because a garbled extraction is itself diagnostic input for risk
// assessment.
package extract

// Canonical field names.
const (
	FieldName        = "name"
	FieldDateOfBirth = "date_of_birth"
	FieldAddress     = "address"
	FieldPostcode    = "postcode"
	FieldABN         = "abn"
	FieldACN         = "acn"
)

// FieldNames lists every field the extractor knows, in report order.
var FieldNames = []string{
	FieldName,
	FieldDateOfBirth,
	FieldAddress,
	FieldPostcode,
	FieldABN,
	FieldACN,
}

// Field is one extracted semantic field.
type Field struct {
	Name  string
	Value string
	// Confidence is the length-weighted mean of the confidences of the
	// tokens composing the field, 0..100.
	Confidence float64
	// Valid reports whether the value passed its format/checksum check.
	Valid bool
}

// Fields is the per-document extraction result. Produced once per
// verification session and not mutated afterwards.
type Fields struct {
	ByName map[string]Field
	// Confidence is the mean of the field confidences, 0..100. A document
	// with zero recognized fields reports 0 and an empty map.
	Confidence float64
}

// Get returns the named field.
func (f Fields) Get(name string) (Field, bool) {
	fl, ok := f.ByName[name]
	return fl, ok
}

func buildFields(fields []Field) Fields {
	out := Fields{ByName: make(map[string]Field, len(fields))}
	if len(fields) == 0 {
		return out
	}
	var sum float64
	for _, f := range fields {
		out.ByName[f.Name] = f
		sum += f.Confidence
	}
	out.Confidence = sum / float64(len(fields))
	return out
}
