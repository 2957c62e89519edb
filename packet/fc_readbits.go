package packet

import (
	"encoding/binary"
	"errors"
)

// MaxCoilsPerRequest is the largest quantity FC1/FC2 can request: the
// coil byte count field in the response is one byte, so 250*8 = 2000.
const MaxCoilsPerRequest = 2000

// EncodeReadCoilsRequest builds the FC1 (Read Coils) request PDU data
// (start address + quantity, 4 bytes, excludes unit id/function code/CRC).
//
// Example frame: `11 01 00 13 00 25 0E 84`
// 0x11 - unit id
// 0x01 - function code
// 0x00 0x13 - start address
// 0x00 0x25 - quantity
// 0x0E 0x84 - CRC16
func EncodeReadCoilsRequest(startAddress uint16, quantity uint16) ([]byte, error) {
	return encodeReadBitsRequest(startAddress, quantity)
}

// EncodeReadDiscreteInputsRequest builds the FC2 (Read Discrete Inputs)
// request PDU data. Layout is identical to FC1.
func EncodeReadDiscreteInputsRequest(startAddress uint16, quantity uint16) ([]byte, error) {
	return encodeReadBitsRequest(startAddress, quantity)
}

func encodeReadBitsRequest(startAddress uint16, quantity uint16) ([]byte, error) {
	if quantity == 0 || quantity > MaxCoilsPerRequest {
		return nil, errors.New("quantity is out of range (1-2000)")
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], startAddress)
	binary.BigEndian.PutUint16(data[2:4], quantity)
	return data, nil
}

// ExpectedReadBitsResponseLength returns the full RTU frame length a valid
// FC1/FC2 response would have for the given quantity: unit id, function
// code, byte count, the packed coil bytes, and CRC16.
func ExpectedReadBitsResponseLength(quantity uint16) int {
	return 3 + CoilByteLength(int(quantity)) + 2
}

// DecodeReadBitsResponse parses a FC1/FC2 response PDU (everything after
// the function code byte: byte count + packed bits) into an ordered bool
// sequence plus the raw bitmap bytes.
//
// Example PDU (2 bytes of coils): `02 CD 6B` → 16 coils.
func DecodeReadBitsResponse(data []byte, quantity uint16) (*ReadCoilResult, error) {
	if len(data) < 1 {
		return nil, errors.New("read bits response too short")
	}
	byteLen := data[0]
	if len(data) != 1+int(byteLen) {
		return nil, errors.New("read bits response byte count does not match payload length")
	}
	raw := make([]byte, byteLen)
	copy(raw, data[1:])
	return &ReadCoilResult{
		Values: UnpackCoils(raw, int(quantity)),
		Raw:    raw,
	}, nil
}
