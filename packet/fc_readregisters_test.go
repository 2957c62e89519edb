package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeReadHoldingRegistersRequest(t *testing.T) {
	var testCases = []struct {
		name        string
		whenQty     uint16
		expect      []byte
		expectError string
	}{
		{name: "ok", whenQty: 2, expect: []byte{0x00, 0x6B, 0x00, 0x02}},
		{name: "ok, max quantity", whenQty: MaxRegistersPerRequest, expect: []byte{0x00, 0x6B, 0x00, 0x7D}},
		{name: "nok, zero quantity", whenQty: 0, expectError: "quantity is out of range (1-125)"},
		{name: "nok, quantity over max", whenQty: MaxRegistersPerRequest + 1, expectError: "quantity is out of range (1-125)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeReadHoldingRegistersRequest(0x6B, tc.whenQty)

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

func TestEncodeReadInputRegistersRequest_SameLayoutAsHoldingRegisters(t *testing.T) {
	data, err := EncodeReadInputRegistersRequest(0x6B, 2)

	assert.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x6B, 0x00, 0x02}, data)
}

func TestExpectedReadRegistersResponseLength(t *testing.T) {
	assert.Equal(t, 9, ExpectedReadRegistersResponseLength(2, 2))
	assert.Equal(t, 13, ExpectedReadRegistersResponseLength(2, 4))
}

func TestDecodeReadRegistersResponse(t *testing.T) {
	var testCases = []struct {
		name        string
		whenData    []byte
		whenWidth   int
		expect      *ReadRegisterResult
		expectError string
	}{
		{
			name:      "ok, 2 byte registers",
			whenData:  []byte{0x04, 0xAE, 0x41, 0x56, 0x52},
			whenWidth: 2,
			expect: &ReadRegisterResult{
				Values: []uint32{0xAE41, 0x5652},
				Raw:    []byte{0xAE, 0x41, 0x56, 0x52},
			},
		},
		{
			name:      "ok, enron 4 byte registers",
			whenData:  []byte{0x04, 0x00, 0x00, 0x04, 0xD2},
			whenWidth: 4,
			expect: &ReadRegisterResult{
				Values: []uint32{1234},
				Raw:    []byte{0x00, 0x00, 0x04, 0xD2},
			},
		},
		{
			name:        "nok, empty data",
			whenData:    []byte{},
			whenWidth:   2,
			expectError: "read registers response too short",
		},
		{
			name:        "nok, byte count mismatch",
			whenData:    []byte{0x04, 0xAE, 0x41},
			whenWidth:   2,
			expectError: "read registers response byte count does not match payload length",
		},
		{
			name:        "nok, byte count not multiple of width",
			whenData:    []byte{0x03, 0xAE, 0x41, 0x01},
			whenWidth:   4,
			expectError: "read registers response byte count is not a multiple of the register width",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DecodeReadRegistersResponse(tc.whenData, tc.whenWidth)

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
