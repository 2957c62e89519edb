package packet

import "errors"

// Read Device Identification categories, used as the "read device id code"
// byte of the FC43/0x0E sub-request.
const (
	DeviceIDBasic      = uint8(0x01)
	DeviceIDRegular    = uint8(0x02)
	DeviceIDExtended   = uint8(0x03)
	DeviceIDIndividual = uint8(0x04)
)

// EncodeReadDeviceIdentificationRequest builds the FC43/0x0E request PDU
// data: MEI type, read device id code, and the object id to resume from
// (0 on the first request of a sequence).
func EncodeReadDeviceIdentificationRequest(category uint8, objectID uint8) []byte {
	return []byte{meiReadDeviceIdentification, category, objectID}
}

// DeviceIDChunk is a single FC43 response: the merge loop in the engine
// accumulates these into a ReadDeviceIdResult until MoreFollows is false.
// This type has LengthUnknown response length: the object count and each
// object's length are only known after reading the fixed header, so the
// reassembler cannot precompute a frame size for it.
type DeviceIDChunk struct {
	ConformityLevel uint8
	MoreFollows     bool
	NextObjectID    uint8
	Objects         map[uint8]string
}

// DecodeReadDeviceIdentificationResponse parses one FC43/0x0E response
// PDU: MEI type, read device id code, conformity level, more-follows
// flag, next object id, number of objects, then a sequence of
// [id:u8][len:u8][value] triples.
func DecodeReadDeviceIdentificationResponse(data []byte) (*DeviceIDChunk, error) {
	if len(data) < 6 {
		return nil, errors.New("read device identification response is too short")
	}
	if data[0] != meiReadDeviceIdentification {
		return nil, errors.New("read device identification response has unexpected MEI type")
	}
	chunk := &DeviceIDChunk{
		ConformityLevel: data[2],
		MoreFollows:     data[3] != 0,
		NextObjectID:    data[4],
		Objects:         make(map[uint8]string),
	}
	numObjects := int(data[5])
	offset := 6
	for i := 0; i < numObjects; i++ {
		if offset+2 > len(data) {
			return nil, errors.New("read device identification response truncated in object header")
		}
		objectID := data[offset]
		objectLen := int(data[offset+1])
		offset += 2
		if offset+objectLen > len(data) {
			return nil, errors.New("read device identification response truncated in object value")
		}
		chunk.Objects[objectID] = string(data[offset : offset+objectLen])
		offset += objectLen
	}
	return chunk, nil
}
