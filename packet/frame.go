package packet

import "errors"

// ErrFrameTooShort is returned when a buffer is too small to contain a
// minimal Modbus RTU frame (unit id + function code + 1 data/exception
// byte + 2 CRC bytes).
var ErrFrameTooShort = errors.New("frame is too short to be a valid Modbus RTU frame")

// MinFrameLength is the shortest possible RTU frame: a one-byte exception
// response (unit + function + code + CRC16).
const MinFrameLength = 5

// BuildFrame assembles a complete Modbus RTU frame: unit id, function
// code, PDU data, and trailing CRC16.
func BuildFrame(unitID uint8, functionCode uint8, data []byte) []byte {
	body := make([]byte, 2+len(data))
	body[0] = unitID
	body[1] = functionCode
	copy(body[2:], data)
	return AppendCRC(body)
}

// SplitFrame validates a received frame's CRC and splits it into its unit
// id, function code, and PDU data (the bytes between the function code and
// the trailing CRC).
func SplitFrame(frame []byte) (unitID uint8, functionCode uint8, data []byte, err error) {
	if len(frame) < MinFrameLength {
		return 0, 0, nil, ErrFrameTooShort
	}
	if err := CheckCRC(frame); err != nil {
		return 0, 0, nil, err
	}
	return frame[0], frame[1], frame[2 : len(frame)-2], nil
}
