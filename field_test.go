package modbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkvol/gomodbus-transact/packet"
)

func TestParseFieldType(t *testing.T) {
	ft, err := ParseFieldType("uint32")
	require.NoError(t, err)
	assert.Equal(t, FieldTypeUint32, ft)

	_, err = ParseFieldType("nope")
	assert.Error(t, err)
}

func TestField_Validate(t *testing.T) {
	var testCases = []struct {
		name      string
		field     Field
		expectErr string
	}{
		{
			name:      "nok, missing server address",
			field:     Field{Type: FieldTypeUint16},
			expectErr: "field server address can not be empty",
		},
		{
			name:      "nok, missing type",
			field:     Field{ServerAddress: "tcp://example.com:502"},
			expectErr: "field type must be set",
		},
		{
			name:      "nok, bit out of range",
			field:     Field{ServerAddress: "tcp://example.com:502", Type: FieldTypeBit, Bit: 16},
			expectErr: "field bit value must be in range (0-15)",
		},
		{
			name: "nok, coil with wrong function code",
			field: Field{
				ServerAddress: "tcp://example.com:502",
				Type:          FieldTypeCoil,
				FunctionCode:  packet.FCReadHoldingRegisters,
			},
			expectErr: "field with type coil must have function code of 0,1,2",
		},
		{
			name: "nok, string without length",
			field: Field{
				ServerAddress: "tcp://example.com:502",
				Type:          FieldTypeString,
			},
			expectErr: "field with type string must have length set",
		},
		{
			name: "ok",
			field: Field{
				ServerAddress: "tcp://example.com:502",
				Type:          FieldTypeUint32,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.field.Validate()
			if tc.expectErr != "" {
				require.EqualError(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestField_ExtractFrom(t *testing.T) {
	registers, err := packet.NewRegisters([]byte{0x01, 0x02, 0x03, 0x04}, 100)
	require.NoError(t, err)

	f := Field{Address: 100, Type: FieldTypeUint32, ByteOrder: packet.BigEndian}
	value, err := f.ExtractFrom(registers)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), value)

	bitField := Field{Address: 100, Type: FieldTypeBit, Bit: 0}
	bitValue, err := bitField.ExtractFrom(registers)
	require.NoError(t, err)
	assert.Equal(t, false, bitValue)
}

func TestField_CheckInvalid(t *testing.T) {
	registers, err := packet.NewRegisters([]byte{0xff, 0xff, 0xff, 0xff}, 100)
	require.NoError(t, err)

	f := Field{Address: 100, Type: FieldTypeUint32, Invalid: Invalid{0xff, 0xff, 0xff, 0xff}}
	err = f.CheckInvalid(registers)
	assert.True(t, errors.Is(err, ErrInvalidValue))

	f.Invalid = Invalid{0x00, 0x00, 0x00, 0x00}
	assert.NoError(t, f.CheckInvalid(registers))
}

func TestField_MarshalBytes_Uint16(t *testing.T) {
	f := Field{Type: FieldTypeUint16}
	raw, err := f.MarshalBytes(uint16(0x1234))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34}, raw)
}

func TestInvalid_JSONRoundtrip(t *testing.T) {
	i := Invalid{0xca, 0xfe}
	raw, err := i.MarshalJSON()
	require.NoError(t, err)

	var out Invalid
	require.NoError(t, out.UnmarshalJSON(raw))
	assert.Equal(t, i, out)
}
