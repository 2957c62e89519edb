package packet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16(t *testing.T) {
	var testCases = []struct {
		name   string
		when   []byte
		expect uint16
	}{
		{name: "ok, read input registers response", when: []byte{0x01, 0x04, 0x02, 0xFF, 0xFF}, expect: 0x80B8},
		{name: "ok, empty", when: []byte{}, expect: 0xFFFF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CRC16(tc.when))
		})
	}
}

func TestAppendCRC(t *testing.T) {
	data := []byte{0x01, 0x04, 0x02, 0xFF, 0xFF}
	out := AppendCRC(data)

	assert.Equal(t, []byte{0x01, 0x04, 0x02, 0xFF, 0xFF, 0xB8, 0x80}, out)
}

func TestCheckCRC(t *testing.T) {
	var testCases = []struct {
		name           string
		when           []byte
		expectErr      error
		expectMismatch *CRCMismatch
	}{
		{
			name: "ok",
			when: []byte{0x01, 0x04, 0x02, 0xFF, 0xFF, 0xB8, 0x80},
		},
		{
			name:      "nok, too short",
			when:      []byte{0x01, 0x02},
			expectErr: ErrInvalidCRC,
		},
		{
			name:           "nok, crc mismatch",
			when:           []byte{0x01, 0x04, 0x02, 0xFF, 0xFF, 0x00, 0x00},
			expectErr:      ErrInvalidCRC,
			expectMismatch: &CRCMismatch{Expected: 0x80B8, Got: 0x0000},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckCRC(tc.when)

			if tc.expectErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.expectErr))
			if tc.expectMismatch != nil {
				var mismatch *CRCMismatch
				assert.True(t, errors.As(err, &mismatch))
				assert.Equal(t, tc.expectMismatch, mismatch)
			}
		})
	}
}
