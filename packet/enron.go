package packet

import "errors"

// EnronRange is one of the four fixed Enron register bands, with the
// register width in bytes used for addresses inside it.
type EnronRange struct {
	Start uint16
	End   uint16
	Width int
}

// EnronConfig holds the four vendor-extension register bands defined by
// the Enron Modbus variant. A zero-value EnronConfig has no ranges, so
// RegisterWidth always returns the standard 16-bit width.
type EnronConfig struct {
	ranges [4]EnronRange
}

// DefaultEnronConfig returns the canonical Enron band layout: short
// [3001,3999] at the standard 16-bit width, boolean [1001,1999], long
// [5001,5999] and float [7001,7999] at 32 bits.
func DefaultEnronConfig() EnronConfig {
	return EnronConfig{
		ranges: [4]EnronRange{
			{Start: 1001, End: 1999, Width: 4},
			{Start: 3001, End: 3999, Width: 2},
			{Start: 5001, End: 5999, Width: 4},
			{Start: 7001, End: 7999, Width: 4},
		},
	}
}

// RegisterWidth returns the register width in bytes (2 or 4) that
// applies to the given address under this configuration: the width of
// the band the address falls in, or 32 bits for an address outside all
// four bands. A configuration with no bands returns the standard 16-bit
// width for every address.
func (c EnronConfig) RegisterWidth(address uint16) int {
	configured := false
	for _, r := range c.ranges {
		if r.Width == 0 {
			continue
		}
		configured = true
		if address >= r.Start && address <= r.End {
			return r.Width
		}
	}
	if configured {
		return 4
	}
	return 2
}

// EncodeReadHoldingRegistersEnronRequest builds a FC3 request under an
// Enron configuration. Encoding is identical to the plain form; only
// response decoding differs by register width.
func EncodeReadHoldingRegistersEnronRequest(startAddress, quantity uint16) ([]byte, error) {
	return encodeReadRegistersRequest(startAddress, quantity)
}

// EncodeReadInputRegistersEnronRequest builds a FC4 request under an
// Enron configuration.
func EncodeReadInputRegistersEnronRequest(startAddress, quantity uint16) ([]byte, error) {
	return encodeReadRegistersRequest(startAddress, quantity)
}

// DecodeReadRegistersEnronResponse decodes a FC3/FC4 response whose
// register width is determined by the request's starting address under
// cfg, rather than always being 2 bytes.
func DecodeReadRegistersEnronResponse(data []byte, startAddress uint16, cfg EnronConfig) (*ReadRegisterResult, error) {
	return DecodeReadRegistersResponse(data, cfg.RegisterWidth(startAddress))
}

// EncodeWriteSingleRegisterEnronRequest builds a FC6 request whose value
// is widened to 32 bits when cfg gives address a 4-byte width.
// Narrow (16-bit) addresses behave exactly like EncodeWriteSingleRegisterRequest.
func EncodeWriteSingleRegisterEnronRequest(address uint16, value uint32, cfg EnronConfig) ([]byte, error) {
	width := cfg.RegisterWidth(address)
	if width == 2 {
		if value > 0xFFFF {
			return nil, errors.New("value does not fit in a 16-bit register")
		}
		return EncodeWriteSingleRegisterRequest(address, uint16(value)), nil
	}
	data := make([]byte, 6)
	data[0] = byte(address >> 8)
	data[1] = byte(address)
	data[2] = byte(value >> 24)
	data[3] = byte(value >> 16)
	data[4] = byte(value >> 8)
	data[5] = byte(value)
	return data, nil
}

// DecodeWriteSingleRegisterEnronResponse parses a FC6 Enron response,
// widening the echoed value according to cfg.
func DecodeWriteSingleRegisterEnronResponse(data []byte, cfg EnronConfig) (*WriteRegisterResult, error) {
	width := cfg.RegisterWidth(0)
	if len(data) >= 2 {
		address := uint16(data[0])<<8 | uint16(data[1])
		width = cfg.RegisterWidth(address)
	}
	if width == 2 {
		return DecodeWriteSingleRegisterResponse(data)
	}
	if len(data) != 6 {
		return nil, errors.New("write single register (enron) response has unexpected length")
	}
	address := uint16(data[0])<<8 | uint16(data[1])
	value := uint32(data[2])<<24 | uint32(data[3])<<16 | uint32(data[4])<<8 | uint32(data[5])
	return &WriteRegisterResult{Address: address, Value: value}, nil
}
