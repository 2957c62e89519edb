package packet

import (
	"encoding/binary"
	"errors"
)

const (
	coilOnWord  = uint16(0xFF00)
	coilOffWord = uint16(0x0000)
)

// EncodeWriteSingleCoilRequest builds the FC5 request PDU data: address
// plus 0xFF00 (on) or 0x0000 (off).
func EncodeWriteSingleCoilRequest(address uint16, value bool) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	word := coilOffWord
	if value {
		word = coilOnWord
	}
	binary.BigEndian.PutUint16(data[2:4], word)
	return data
}

// ExpectedWriteSingleCoilResponseLength is the full RTU response frame
// length for a (non-broadcast) FC5 write.
const ExpectedWriteSingleCoilResponseLength = 8

// DecodeWriteSingleCoilResponse parses a FC5 response PDU, which echoes
// the request: address, then the coil state word.
func DecodeWriteSingleCoilResponse(data []byte) (*WriteCoilResult, error) {
	if len(data) != 4 {
		return nil, errors.New("write single coil response has unexpected length")
	}
	address := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4]) == coilOnWord
	return &WriteCoilResult{Address: address, Value: value}, nil
}
