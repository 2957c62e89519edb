package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkvol/gomodbus-transact/packet"
)

func TestBuilder_Build_GroupsAdjacentRegistersIntoOneBatch(t *testing.T) {
	b := NewBuilder().
		AddFields(
			Field{Name: "a", ServerAddress: "tcp://plc:502", FunctionCode: packet.FCReadHoldingRegisters, Address: 0, Type: FieldTypeUint16},
			Field{Name: "b", ServerAddress: "tcp://plc:502", FunctionCode: packet.FCReadHoldingRegisters, Address: 1, Type: FieldTypeUint16},
		)

	batches, err := b.Build()
	require.NoError(t, err)
	require.Len(t, batches, 1)

	batch := batches[0]
	assert.Equal(t, uint8(packet.FCReadHoldingRegisters), batch.FunctionCode)
	assert.Equal(t, uint16(0), batch.StartAddress)
	assert.Equal(t, uint16(2), batch.Quantity)
	assert.Len(t, batch.Fields, 2)
}

func TestBuilder_Build_SeparatesCoilsFromRegisters(t *testing.T) {
	b := NewBuilder().
		Add(Field{Name: "coil", ServerAddress: "tcp://plc:502", Type: FieldTypeCoil, Address: 0}).
		Add(Field{Name: "reg", ServerAddress: "tcp://plc:502", FunctionCode: packet.FCReadHoldingRegisters, Type: FieldTypeUint16, Address: 0})

	batches, err := b.Build()
	require.NoError(t, err)
	require.Len(t, batches, 2)

	fcs := map[uint8]bool{}
	for _, batch := range batches {
		fcs[batch.FunctionCode] = true
	}
	assert.True(t, fcs[packet.FCReadCoils])
	assert.True(t, fcs[packet.FCReadHoldingRegisters])
}

func TestBuilder_Build_SplitsFarApartAddressesIntoSeparateBatches(t *testing.T) {
	b := NewBuilder().
		Add(Field{Name: "a", ServerAddress: "tcp://plc:502", FunctionCode: packet.FCReadHoldingRegisters, Address: 0, Type: FieldTypeUint16}).
		Add(Field{Name: "b", ServerAddress: "tcp://plc:502", FunctionCode: packet.FCReadHoldingRegisters, Address: 1000, Type: FieldTypeUint16})

	batches, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestBuilder_Build_NoFieldsIsError(t *testing.T) {
	_, err := NewBuilder().Build()
	assert.Error(t, err)
}

func TestBuilderRequest_ExtractFields_Registers(t *testing.T) {
	batch := BuilderRequest{
		FunctionCode: packet.FCReadHoldingRegisters,
		StartAddress: 10,
		Quantity:     2,
		Fields: Fields{
			{Name: "a", Address: 10, Type: FieldTypeUint16},
			{Name: "b", Address: 11, Type: FieldTypeUint16},
		},
	}
	values, err := batch.ExtractFields([]byte{0x00, 0x01, 0x00, 0x02})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, uint16(1), values[0].Value)
	assert.Equal(t, uint16(2), values[1].Value)
}

func TestBuilderRequest_ExtractFields_Coils(t *testing.T) {
	batch := BuilderRequest{
		FunctionCode: packet.FCReadCoils,
		StartAddress: 0,
		Quantity:     3,
		Fields: Fields{
			{Name: "a", Address: 0, Type: FieldTypeCoil},
			{Name: "b", Address: 2, Type: FieldTypeCoil},
		},
	}
	// bit pattern 0b101 => coil 0 and 2 set, coil 1 clear
	values, err := batch.ExtractFields([]byte{0x05})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, true, values[0].Value)
	assert.Equal(t, true, values[1].Value)
}

func TestAddressToSplitterConfig(t *testing.T) {
	config, err := addressToSplitterConfig("tcp://plc:502?max_quantity_per_request=10&invalid_addr=5,10-20")
	require.NoError(t, err)
	assert.Equal(t, uint16(10), config.MaxQuantityPerRequest)
	require.Len(t, config.InvalidRange, 2)
}
