package reassembly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkvol/gomodbus-transact/packet"
)

func TestReassembler_Feed_leadingGarbageDiscarded(t *testing.T) {
	r := New()
	r.Arm(17, packet.FCReadHoldingRegisters, 9)

	frame, ok := r.Feed([]byte{0xFF, 0xFF, 0x11, 0x03, 0x04, 0xAE, 0x41, 0x56, 0x52, 0x49, 0xAD})

	assert.True(t, ok)
	assert.Equal(t, []byte{0x11, 0x03, 0x04, 0xAE, 0x41, 0x56, 0x52, 0x49, 0xAD}, frame)
	assert.Empty(t, r.buf)
}

func TestReassembler_Feed_waitsForMoreBytes(t *testing.T) {
	r := New()
	r.Arm(17, packet.FCReadHoldingRegisters, 9)

	frame, ok := r.Feed([]byte{0x11, 0x03, 0x04, 0xAE})
	assert.False(t, ok)
	assert.Nil(t, frame)

	frame, ok = r.Feed([]byte{0x41, 0x56, 0x52, 0x49, 0xAD})
	assert.True(t, ok)
	assert.Equal(t, []byte{0x11, 0x03, 0x04, 0xAE, 0x41, 0x56, 0x52, 0x49, 0xAD}, frame)
}

func TestReassembler_Feed_exceptionFrameShortCircuits(t *testing.T) {
	r := New()
	r.Arm(17, packet.FCReadCoils, 8)

	frame, ok := r.Feed([]byte{0x11, 0x81, 0x02, 0xC1, 0x91})

	assert.True(t, ok)
	assert.Equal(t, []byte{0x11, 0x81, 0x02, 0xC1, 0x91}, frame)
}

func TestReassembler_Feed_unmatchedUnitIdAdvances(t *testing.T) {
	r := New()
	r.Arm(17, packet.FCReadHoldingRegisters, 9)

	frame, ok := r.Feed([]byte{
		0x05, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // unrelated frame, wrong unit id
		0x11, 0x03, 0x04, 0xAE, 0x41, 0x56, 0x52, 0x49, 0xAD,
	})

	assert.True(t, ok)
	assert.Equal(t, []byte{0x11, 0x03, 0x04, 0xAE, 0x41, 0x56, 0x52, 0x49, 0xAD}, frame)
}

func TestReassembler_Feed_deviceIdWalksTLVChain(t *testing.T) {
	r := New()
	r.Arm(17, packet.FCReadDeviceIdentification, packet.LengthUnknown)

	chunk := []byte{
		0x11, 0x2B, // unit, function
		0x0E, 0x01, 0x00, 0xFF, 0x00, 0x02, // MEI, code, conformity, moreFollows, nextObjectId, numObjects
		0x00, 0x03, 'F', 'o', 'o',
		0x01, 0x03, 'B', 'a', 'r',
		0x12, 0x34, // CRC (not validated by the reassembler itself)
	}
	frame, ok := r.Feed(chunk)

	assert.True(t, ok)
	assert.Equal(t, chunk, frame)
}

func TestReassembler_Feed_deviceIdWaitsForFullObjectChain(t *testing.T) {
	r := New()
	r.Arm(17, packet.FCReadDeviceIdentification, packet.LengthUnknown)

	frame, ok := r.Feed([]byte{
		0x11, 0x2B,
		0x0E, 0x01, 0x00, 0xFF, 0x00, 0x02,
		0x00, 0x03, 'F', 'o', 'o',
		0x01, 0x03, 'B', // truncated mid-object
	})

	assert.False(t, ok)
	assert.Nil(t, frame)
}

func TestReassembler_Feed_lateBytesAfterDisarmAreIgnored(t *testing.T) {
	r := New()
	r.Arm(17, packet.FCReadHoldingRegisters, 9)
	r.Disarm() // simulates the engine's timeout already firing

	frame, ok := r.Feed([]byte{0x11, 0x03, 0x04, 0xAE, 0x41, 0x56, 0x52, 0x49, 0xAD})

	assert.False(t, ok)
	assert.Nil(t, frame)
}

func TestReassembler_Feed_overflowDropsOldestBytes(t *testing.T) {
	r := New()
	r.Arm(99, packet.FCReadHoldingRegisters, 9)

	garbage := make([]byte, MaxBufferLen+50)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	r.Feed(garbage)

	assert.LessOrEqual(t, len(r.buf), MaxBufferLen)
}
