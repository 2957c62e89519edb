package packet

import (
	"encoding/binary"
	"errors"
)

// referenceTypeExtended is the only reference type defined by the Modbus
// spec for FC20/FC21 sub-requests.
const referenceTypeExtended = uint8(6)

// EncodeReadFileRecordRequest builds the FC20 request PDU data for a
// single sub-request. Multiple sub-requests per call are not supported:
// callers issue one Client call per file record they need.
func EncodeReadFileRecordRequest(fileNumber, recordNumber, recordLength uint16) ([]byte, error) {
	if recordLength == 0 {
		return nil, errors.New("record length must be greater than zero")
	}
	data := make([]byte, 8)
	data[0] = 7 // byte count of the single sub-request that follows
	data[1] = referenceTypeExtended
	binary.BigEndian.PutUint16(data[2:4], fileNumber)
	binary.BigEndian.PutUint16(data[4:6], recordNumber)
	binary.BigEndian.PutUint16(data[6:8], recordLength)
	return data, nil
}

// ExpectedReadFileRecordResponseLength is the full RTU response frame
// length for a single-sub-request FC20 read: address(1)+function(1)+
// respByteCount(1)+subReqLen(1)+refType(1)+data(2*recordLength)+crc(2).
func ExpectedReadFileRecordResponseLength(recordLength uint16) int {
	return 7 + 2*int(recordLength)
}

// DecodeReadFileRecordResponse parses a FC20 response PDU for a single
// sub-response: response data length, sub-request length byte, reference
// type, then the record payload. A reference type 7 payload is ASCII
// text and is cut at its first NUL byte.
func DecodeReadFileRecordResponse(data []byte) (*ReadFileRecordResult, error) {
	const referenceTypeASCII = uint8(7)
	if len(data) < 3 {
		return nil, errors.New("read file record response is too short")
	}
	respDataLen := int(data[0])
	if len(data) != 1+respDataLen {
		return nil, errors.New("read file record response has unexpected length")
	}
	subReqLen := data[1]
	refType := data[2]
	if refType != referenceTypeExtended && refType != referenceTypeASCII {
		return nil, errors.New("read file record response has unexpected reference type")
	}
	payload := data[3 : 1+respDataLen]
	if len(payload) != int(subReqLen)-1 {
		return nil, errors.New("read file record response sub-request length mismatch")
	}
	if refType == referenceTypeASCII {
		for i, b := range payload {
			if b == 0 {
				payload = payload[:i]
				break
			}
		}
	}
	return &ReadFileRecordResult{
		ReferenceType: refType,
		Payload:       payload,
		SubRequestLen: subReqLen,
	}, nil
}
