package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeReadCoilsRequest(t *testing.T) {
	var testCases = []struct {
		name        string
		whenQty     uint16
		expect      []byte
		expectError string
	}{
		{name: "ok", whenQty: 0x25, expect: []byte{0x00, 0x13, 0x00, 0x25}},
		{name: "ok, max quantity", whenQty: MaxCoilsPerRequest, expect: []byte{0x00, 0x13, 0x07, 0xD0}},
		{name: "nok, zero quantity", whenQty: 0, expectError: "quantity is out of range (1-2000)"},
		{name: "nok, quantity over max", whenQty: MaxCoilsPerRequest + 1, expectError: "quantity is out of range (1-2000)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeReadCoilsRequest(0x13, tc.whenQty)

			if tc.expectError != "" {
				assert.EqualError(t, err, tc.expectError)
				assert.Nil(t, data)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expect, data)
			}
		})
	}
}

func TestEncodeReadDiscreteInputsRequest_SameLayoutAsReadCoils(t *testing.T) {
	data, err := EncodeReadDiscreteInputsRequest(0x13, 0x25)

	assert.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x13, 0x00, 0x25}, data)
}

func TestExpectedReadBitsResponseLength(t *testing.T) {
	assert.Equal(t, 6, ExpectedReadBitsResponseLength(8))
	assert.Equal(t, 6, ExpectedReadBitsResponseLength(1))
}

func TestDecodeReadBitsResponse(t *testing.T) {
	var testCases = []struct {
		name        string
		whenData    []byte
		whenQty     uint16
		expect      *ReadCoilResult
		expectError string
	}{
		{
			name:     "ok",
			whenData: []byte{0x02, 0xCD, 0x6B},
			whenQty:  16,
			expect: &ReadCoilResult{
				Values: UnpackCoils([]byte{0xCD, 0x6B}, 16),
				Raw:    []byte{0xCD, 0x6B},
			},
		},
		{
			name:        "nok, empty data",
			whenData:    []byte{},
			whenQty:     1,
			expectError: "read bits response too short",
		},
		{
			name:        "nok, byte count mismatch",
			whenData:    []byte{0x02, 0xCD},
			whenQty:     16,
			expectError: "read bits response byte count does not match payload length",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DecodeReadBitsResponse(tc.whenData, tc.whenQty)

			if tc.expectError != "" {
				assert.EqualError(t, err, tc.expectError)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expect, result)
			}
		})
	}
}
