package packet

import "errors"

// EncodeReadExceptionStatusRequest builds the FC7 request PDU data, which
// is empty: the function code alone fully specifies the request.
func EncodeReadExceptionStatusRequest() []byte {
	return nil
}

// ExpectedReadExceptionStatusResponseLength is the full RTU response
// frame length for FC7.
const ExpectedReadExceptionStatusResponseLength = 5

// DecodeReadExceptionStatusResponse parses a FC7 response PDU: a single
// status byte.
func DecodeReadExceptionStatusResponse(data []byte) (*ReadExceptionStatusResult, error) {
	if len(data) != 1 {
		return nil, errors.New("read exception status response has unexpected length")
	}
	return &ReadExceptionStatusResult{Status: data[0]}, nil
}
