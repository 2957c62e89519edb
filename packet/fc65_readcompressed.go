package packet

import (
	"encoding/binary"
	"errors"
)

// MaxCompressedPNUCount is the largest number of PNU values a single
// FC65 request can list.
const MaxCompressedPNUCount = 16

// EncodeReadCompressedRequest builds the FC65 request PDU data: a count
// byte followed by that many big-endian 16-bit PNU addresses. Unlike
// FC3/FC4, FC65 does not address a contiguous register range; pnu is an
// arbitrary, caller-ordered list of values to look up.
func EncodeReadCompressedRequest(pnu []uint16) ([]byte, error) {
	if len(pnu) == 0 || len(pnu) > MaxCompressedPNUCount {
		return nil, errors.New("read compressed pnu count must be in range (1-16)")
	}
	data := make([]byte, 1+2*len(pnu))
	data[0] = byte(len(pnu))
	for i, p := range pnu {
		off := 1 + i*2
		binary.BigEndian.PutUint16(data[off:off+2], p)
	}
	return data, nil
}

// ExpectedReadCompressedResponseLength is the full RTU response frame
// length for FC65: address(1)+function(1)+byteCount(1)+errorFlags(2)+
// values(2*quantity)+crc(2).
func ExpectedReadCompressedResponseLength(quantity uint16) int {
	return 7 + 2*int(quantity)
}

// DecodeReadCompressedResponse parses a FC65 response PDU: byte count,
// a 16-bit error flags word, then the signed 16-bit register values.
func DecodeReadCompressedResponse(data []byte, quantity uint16) (*ReadCompressedResult, error) {
	if len(data) < 1 {
		return nil, errors.New("read compressed response is too short")
	}
	byteCount := int(data[0])
	if len(data) != 1+byteCount {
		return nil, errors.New("read compressed response has unexpected length")
	}
	body := data[1:]
	if len(body) != 2+2*int(quantity) {
		return nil, errors.New("read compressed response quantity mismatch")
	}
	errorFlags := binary.BigEndian.Uint16(body[0:2])
	values := make([]int16, quantity)
	for i := range values {
		off := 2 + i*2
		values[i] = int16(binary.BigEndian.Uint16(body[off : off+2]))
	}
	return &ReadCompressedResult{
		Values:     values,
		ErrorFlags: errorFlags,
		Raw:        body[2:],
	}, nil
}
