// Package modbus implements a Modbus RTU/ASCII fieldbus client: frame
// encoding/decoding for the common read/write function codes plus the
// Enron register-width extension, a transaction engine that serializes
// one outstanding request at a time per transport, and a Client façade
// wiring the two together for callers.
package modbus

import (
	"context"
	"fmt"
	"time"

	"github.com/dkvol/gomodbus-transact/engine"
	"github.com/dkvol/gomodbus-transact/packet"
)

// Client wraps an engine.Engine with one method per public operation of
// the fieldbus API, building the request PDU and decode closure so
// callers never touch the packet package directly.
type Client struct {
	engine *engine.Engine
}

// ClientOption configures a Client at construction time. These forward
// to the underlying engine's own options.
type ClientOption = engine.Option

// WithUnitID sets the default unit id used when a call does not carry
// its own. Alias of engine.WithUnitID, re-exported so callers only
// import this package for common configuration.
func WithUnitID(id uint8) ClientOption { return engine.WithUnitID(id) }

// WithTimeout sets the per-transaction response timeout.
func WithTimeout(d time.Duration) ClientOption { return engine.WithTimeout(d) }

// WithDebug enables request/response debug capture on every result.
func WithDebug(enabled bool) ClientOption { return engine.WithDebug(enabled) }

// WithEnronConfig installs the register-width bands used by the Enron
// variant operations.
func WithEnronConfig(cfg packet.EnronConfig) ClientOption { return engine.WithEnronConfig(cfg) }

// NewClient builds a Client over transport and starts its transaction
// loop. Callers must call Close when done.
func NewClient(transport engine.Transport, opts ...ClientOption) *Client {
	return &Client{engine: engine.New(transport, opts...)}
}

// IsOpen reports whether the underlying transport currently accepts
// writes.
func (c *Client) IsOpen() bool { return c.engine.IsOpen() }

// IsDebugEnabled reports whether transactions capture request/response
// debug chunks.
func (c *Client) IsDebugEnabled() bool { return c.engine.IsDebugEnabled() }

// SetDebug toggles debug capture for future transactions.
func (c *Client) SetDebug(enabled bool) { c.engine.SetDebug(enabled) }

// UnitID returns the client's default unit id.
func (c *Client) UnitID() uint8 { return c.engine.UnitID() }

// SetUnitID changes the client's default unit id.
func (c *Client) SetUnitID(id uint8) { c.engine.SetUnitID(id) }

// Timeout returns the per-transaction response timeout.
func (c *Client) Timeout() time.Duration { return c.engine.Timeout() }

// SetTimeout changes the per-transaction response timeout.
func (c *Client) SetTimeout(d time.Duration) { c.engine.SetTimeout(d) }

// Close stops the client's transaction loop. It does not close the
// transport; callers own the transport's lifecycle (open/close/destroy
// per the transport contract are transport-level concerns).
func (c *Client) Close() error { return c.engine.Close() }

// ReadCoils reads qty coils starting at startAddress (FC1).
func (c *Client) ReadCoils(ctx context.Context, unitID uint8, startAddress, qty uint16) (*packet.ReadCoilResult, error) {
	pdu, err := packet.EncodeReadCoilsRequest(startAddress, qty)
	if err != nil {
		return nil, err
	}
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCReadCoils,
		Frame:          packet.BuildFrame(unitID, packet.FCReadCoils, pdu),
		ExpectedLength: packet.ExpectedReadBitsResponseLength(qty),
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeReadBitsResponse(data, qty)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadCoilResult), nil
}

// ReadDiscreteInputs reads qty discrete inputs starting at startAddress (FC2).
func (c *Client) ReadDiscreteInputs(ctx context.Context, unitID uint8, startAddress, qty uint16) (*packet.ReadCoilResult, error) {
	pdu, err := packet.EncodeReadDiscreteInputsRequest(startAddress, qty)
	if err != nil {
		return nil, err
	}
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCReadDiscreteInputs,
		Frame:          packet.BuildFrame(unitID, packet.FCReadDiscreteInputs, pdu),
		ExpectedLength: packet.ExpectedReadBitsResponseLength(qty),
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeReadBitsResponse(data, qty)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadCoilResult), nil
}

// ReadHoldingRegisters reads qty holding registers starting at startAddress (FC3).
func (c *Client) ReadHoldingRegisters(ctx context.Context, unitID uint8, startAddress, qty uint16) (*packet.ReadRegisterResult, error) {
	return c.readRegisters(ctx, unitID, packet.FCReadHoldingRegisters, startAddress, qty)
}

// ReadInputRegisters reads qty input registers starting at startAddress (FC4).
func (c *Client) ReadInputRegisters(ctx context.Context, unitID uint8, startAddress, qty uint16) (*packet.ReadRegisterResult, error) {
	return c.readRegisters(ctx, unitID, packet.FCReadInputRegisters, startAddress, qty)
}

func (c *Client) readRegisters(ctx context.Context, unitID, functionCode uint8, startAddress, qty uint16) (*packet.ReadRegisterResult, error) {
	var pdu []byte
	var err error
	switch functionCode {
	case packet.FCReadHoldingRegisters:
		pdu, err = packet.EncodeReadHoldingRegistersRequest(startAddress, qty)
	default:
		pdu, err = packet.EncodeReadInputRegistersRequest(startAddress, qty)
	}
	if err != nil {
		return nil, err
	}
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   functionCode,
		Frame:          packet.BuildFrame(unitID, functionCode, pdu),
		ExpectedLength: packet.ExpectedReadRegistersResponseLength(qty, 2),
		Decode: func(data []byte, registerWidth int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeReadRegistersResponse(data, registerWidth)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadRegisterResult), nil
}

// ReadHoldingRegistersEnron reads qty holding registers under the Enron
// vendor extension, using the client's configured register-width bands
// to pick 16- vs 32-bit width at decode time.
func (c *Client) ReadHoldingRegistersEnron(ctx context.Context, unitID uint8, startAddress, qty uint16) (*packet.ReadRegisterResult, error) {
	return c.readRegistersEnron(ctx, unitID, packet.FCReadHoldingRegisters, startAddress, qty)
}

// ReadInputRegistersEnron reads qty input registers under the Enron
// vendor extension.
func (c *Client) ReadInputRegistersEnron(ctx context.Context, unitID uint8, startAddress, qty uint16) (*packet.ReadRegisterResult, error) {
	return c.readRegistersEnron(ctx, unitID, packet.FCReadInputRegisters, startAddress, qty)
}

func (c *Client) readRegistersEnron(ctx context.Context, unitID, functionCode uint8, startAddress, qty uint16) (*packet.ReadRegisterResult, error) {
	var pdu []byte
	var err error
	switch functionCode {
	case packet.FCReadHoldingRegisters:
		pdu, err = packet.EncodeReadHoldingRegistersEnronRequest(startAddress, qty)
	default:
		pdu, err = packet.EncodeReadInputRegistersEnronRequest(startAddress, qty)
	}
	if err != nil {
		return nil, err
	}
	cfg := c.engine.EnronConfig()
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:           unitID,
		FunctionCode:     functionCode,
		Frame:            packet.BuildFrame(unitID, functionCode, pdu),
		ExpectedLength:   packet.LengthUnknown,
		IsEnron:          true,
		EnronDataAddress: startAddress,
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeReadRegistersEnronResponse(data, startAddress, cfg)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadRegisterResult), nil
}

// WriteCoil writes a single coil (FC5).
func (c *Client) WriteCoil(ctx context.Context, unitID uint8, address uint16, value bool) (*packet.WriteCoilResult, error) {
	pdu := packet.EncodeWriteSingleCoilRequest(address, value)
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCWriteSingleCoil,
		Frame:          packet.BuildFrame(unitID, packet.FCWriteSingleCoil, pdu),
		AllowBroadcast: true,
		ExpectedLength: packet.ExpectedWriteSingleCoilResponseLength,
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeWriteSingleCoilResponse(data)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if unitID == packet.BroadcastUnitID {
		return &packet.WriteCoilResult{Address: address, Value: value}, nil
	}
	return result.(*packet.WriteCoilResult), nil
}

// WriteCoils writes a run of coils starting at startAddress (FC15).
func (c *Client) WriteCoils(ctx context.Context, unitID uint8, startAddress uint16, coils []bool) (*packet.WriteMultipleResult, error) {
	pdu, err := packet.EncodeWriteMultipleCoilsRequest(startAddress, coils)
	if err != nil {
		return nil, err
	}
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCWriteMultipleCoils,
		Frame:          packet.BuildFrame(unitID, packet.FCWriteMultipleCoils, pdu),
		AllowBroadcast: true,
		ExpectedLength: packet.ExpectedWriteMultipleCoilsResponseLength,
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeWriteMultipleCoilsResponse(data)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if unitID == packet.BroadcastUnitID {
		return &packet.WriteMultipleResult{Address: startAddress, Count: uint16(len(coils))}, nil
	}
	return result.(*packet.WriteMultipleResult), nil
}

// WriteRegister writes a single holding register (FC6).
func (c *Client) WriteRegister(ctx context.Context, unitID uint8, address uint16, value uint16) (*packet.WriteRegisterResult, error) {
	pdu := packet.EncodeWriteSingleRegisterRequest(address, value)
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCWriteSingleRegister,
		Frame:          packet.BuildFrame(unitID, packet.FCWriteSingleRegister, pdu),
		AllowBroadcast: true,
		ExpectedLength: packet.ExpectedWriteSingleRegisterResponseLength,
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeWriteSingleRegisterResponse(data)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if unitID == packet.BroadcastUnitID {
		return &packet.WriteRegisterResult{Address: address, Value: uint32(value)}, nil
	}
	return result.(*packet.WriteRegisterResult), nil
}

// WriteRegisterEnron writes a single register under the Enron vendor
// extension, sized 16 or 32 bits according to the client's configured
// register-width bands.
func (c *Client) WriteRegisterEnron(ctx context.Context, unitID uint8, address uint16, value uint32) (*packet.WriteRegisterResult, error) {
	cfg := c.engine.EnronConfig()
	pdu, err := packet.EncodeWriteSingleRegisterEnronRequest(address, value, cfg)
	if err != nil {
		return nil, err
	}
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:           unitID,
		FunctionCode:     packet.FCWriteSingleRegister,
		Frame:            packet.BuildFrame(unitID, packet.FCWriteSingleRegister, pdu),
		AllowBroadcast:   true,
		ExpectedLength:   packet.LengthUnknown,
		IsEnron:          true,
		EnronDataAddress: address,
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeWriteSingleRegisterEnronResponse(data, cfg)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if unitID == packet.BroadcastUnitID {
		return &packet.WriteRegisterResult{Address: address, Value: value}, nil
	}
	return result.(*packet.WriteRegisterResult), nil
}

// WriteRegisters writes a run of holding registers starting at
// startAddress (FC16).
func (c *Client) WriteRegisters(ctx context.Context, unitID uint8, startAddress uint16, values []uint16) (*packet.WriteMultipleResult, error) {
	pdu, err := packet.EncodeWriteMultipleRegistersRequest(startAddress, values)
	if err != nil {
		return nil, err
	}
	return c.writeMultipleRegisters(ctx, unitID, startAddress, uint16(len(values)), pdu)
}

// WriteRegistersRaw writes a run of holding registers from pre-packed
// big-endian register bytes, for callers that already hold an encoded
// payload (e.g. forwarding bytes read elsewhere).
func (c *Client) WriteRegistersRaw(ctx context.Context, unitID uint8, startAddress uint16, raw []byte) (*packet.WriteMultipleResult, error) {
	pdu, err := packet.EncodeWriteMultipleRegistersRequestRaw(startAddress, raw)
	if err != nil {
		return nil, err
	}
	return c.writeMultipleRegisters(ctx, unitID, startAddress, uint16(len(raw)/2), pdu)
}

func (c *Client) writeMultipleRegisters(ctx context.Context, unitID uint8, startAddress, count uint16, pdu []byte) (*packet.WriteMultipleResult, error) {
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCWriteMultipleRegisters,
		Frame:          packet.BuildFrame(unitID, packet.FCWriteMultipleRegisters, pdu),
		AllowBroadcast: true,
		ExpectedLength: packet.ExpectedWriteMultipleRegistersResponseLength,
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeWriteMultipleRegistersResponse(data)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if unitID == packet.BroadcastUnitID {
		return &packet.WriteMultipleResult{Address: startAddress, Count: count}, nil
	}
	return result.(*packet.WriteMultipleResult), nil
}

// ReadFileRecords reads one sub-request's worth of a file record (FC20).
// Only a single sub-request per call is supported; see DESIGN.md's Open
// Question note on this limitation.
func (c *Client) ReadFileRecords(ctx context.Context, unitID uint8, fileNumber, recordNumber, recordLength uint16) (*packet.ReadFileRecordResult, error) {
	pdu, err := packet.EncodeReadFileRecordRequest(fileNumber, recordNumber, recordLength)
	if err != nil {
		return nil, err
	}
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCReadFileRecord,
		Frame:          packet.BuildFrame(unitID, packet.FCReadFileRecord, pdu),
		ExpectedLength: packet.ExpectedReadFileRecordResponseLength(recordLength),
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeReadFileRecordResponse(data)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadFileRecordResult), nil
}

// ReadExceptionStatus reads the device's exception status byte (FC7).
func (c *Client) ReadExceptionStatus(ctx context.Context, unitID uint8) (*packet.ReadExceptionStatusResult, error) {
	pdu := packet.EncodeReadExceptionStatusRequest()
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCReadExceptionStatus,
		Frame:          packet.BuildFrame(unitID, packet.FCReadExceptionStatus, pdu),
		ExpectedLength: packet.ExpectedReadExceptionStatusResponseLength,
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeReadExceptionStatusResponse(data)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadExceptionStatusResult), nil
}

// ReadDeviceIdentification reads one or more device-id objects from the
// given category, following the protocol's moreFollows continuation
// chain until the device signals completion (FC43).
func (c *Client) ReadDeviceIdentification(ctx context.Context, unitID uint8, category, objectID uint8) (*packet.ReadDeviceIdResult, error) {
	pdu := packet.EncodeReadDeviceIdentificationRequest(category, objectID)
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:           unitID,
		FunctionCode:     packet.FCReadDeviceIdentification,
		Frame:            packet.BuildFrame(unitID, packet.FCReadDeviceIdentification, pdu),
		ExpectedLength:   packet.LengthUnknown,
		IsDeviceID:       true,
		DeviceIDCategory: category,
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadDeviceIdResult), nil
}

// ReadCompressed looks up the values of an arbitrary, caller-ordered list
// of PNU addresses (FC65), at most packet.MaxCompressedPNUCount per call.
func (c *Client) ReadCompressed(ctx context.Context, unitID uint8, pnu []uint16) (*packet.ReadCompressedResult, error) {
	pdu, err := packet.EncodeReadCompressedRequest(pnu)
	if err != nil {
		return nil, err
	}
	qty := uint16(len(pnu))
	result, err := c.engine.Submit(ctx, engine.SubmitRequest{
		UnitID:         unitID,
		FunctionCode:   packet.FCReadCompressed,
		Frame:          packet.BuildFrame(unitID, packet.FCReadCompressed, pdu),
		ExpectedLength: packet.ExpectedReadCompressedResponseLength(qty),
		Decode: func(data []byte, _ int, debug *packet.Debug) (interface{}, error) {
			r, err := packet.DecodeReadCompressedResponse(data, qty)
			if err != nil {
				return nil, err
			}
			r.Debug = debug
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.(*packet.ReadCompressedResult), nil
}

// DoBatch submits req (built by Builder/split from a set of Fields) and
// returns the raw register/coil bytes of the response, so callers that
// only know a function code and address range (the poller package) can
// drive arbitrary read batches without a type switch of their own.
//
// Only the read function codes fields can be batched against (FC1, FC2,
// FC3, FC4) are supported; anything else is a programming error on the
// caller's part.
func (c *Client) DoBatch(ctx context.Context, unitID uint8, functionCode uint8, startAddress, qty uint16) ([]byte, error) {
	switch functionCode {
	case packet.FCReadCoils:
		r, err := c.ReadCoils(ctx, unitID, startAddress, qty)
		if err != nil {
			return nil, err
		}
		return r.Raw, nil
	case packet.FCReadDiscreteInputs:
		r, err := c.ReadDiscreteInputs(ctx, unitID, startAddress, qty)
		if err != nil {
			return nil, err
		}
		return r.Raw, nil
	case packet.FCReadHoldingRegisters:
		r, err := c.ReadHoldingRegisters(ctx, unitID, startAddress, qty)
		if err != nil {
			return nil, err
		}
		return r.Raw, nil
	case packet.FCReadInputRegisters:
		r, err := c.ReadInputRegisters(ctx, unitID, startAddress, qty)
		if err != nil {
			return nil, err
		}
		return r.Raw, nil
	default:
		return nil, fmt.Errorf("modbus: function code %d can not be batched", functionCode)
	}
}
