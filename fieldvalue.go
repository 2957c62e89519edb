package modbus

import (
	"github.com/dkvol/gomodbus-transact/packet"
)

// FieldValue is one Field's extracted value (or extraction error) from a
// BuilderRequest's response.
type FieldValue struct {
	Field Field
	Value interface{}
	Err   error
}

// HasError reports whether the extraction of this field failed.
func (fv FieldValue) HasError() bool { return fv.Err != nil }

// ExtractFields decodes raw (the Raw bytes of a ReadCoilResult or
// ReadRegisterResult obtained by submitting this batch) into one
// FieldValue per Field the batch carries. A field whose extraction
// fails still produces a FieldValue, with Err set, rather than aborting
// the whole batch: one bad register (invalid-value marker, out-of-range
// bit) should not discard every other field in the same response.
func (b BuilderRequest) ExtractFields(raw []byte) ([]FieldValue, error) {
	values := make([]FieldValue, 0, len(b.Fields))

	if b.FunctionCode == packet.FCReadCoils || b.FunctionCode == packet.FCReadDiscreteInputs {
		bits := packet.UnpackCoils(raw, int(b.Quantity))
		for _, f := range b.Fields {
			idx := int(f.Address - b.StartAddress)
			if idx < 0 || idx >= len(bits) {
				values = append(values, FieldValue{Field: f, Err: ErrInvalidValue})
				continue
			}
			values = append(values, FieldValue{Field: f, Value: bits[idx]})
		}
		return values, nil
	}

	registers, err := packet.NewRegisters(raw, b.StartAddress)
	if err != nil {
		return nil, err
	}
	for _, f := range b.Fields {
		field := f
		value, err := field.ExtractFrom(registers)
		values = append(values, FieldValue{Field: f, Value: value, Err: err})
	}
	return values, nil
}
