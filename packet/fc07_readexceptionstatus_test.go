package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeReadExceptionStatusRequest(t *testing.T) {
	assert.Nil(t, EncodeReadExceptionStatusRequest())
}

func TestDecodeReadExceptionStatusResponse(t *testing.T) {
	var testCases = []struct {
		name        string
		whenData    []byte
		expect      *ReadExceptionStatusResult
		expectError string
	}{
		{name: "ok", whenData: []byte{0x6C}, expect: &ReadExceptionStatusResult{Status: 0x6C}},
		{name: "nok, wrong length", whenData: []byte{}, expectError: "read exception status response has unexpected length"},
		{name: "nok, too long", whenData: []byte{0x6C, 0x00}, expectError: "read exception status response has unexpected length"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := DecodeReadExceptionStatusResponse(tc.whenData)

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
