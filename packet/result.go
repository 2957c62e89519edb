package packet

// Debug carries the original request bytes and accumulated response
// chunks for a transaction, present on a Result only when the owning
// engine has debug mode enabled. Mirrors spec.md §3's "optionally carries
// a reference to the original request bytes and the list of response
// chunks that produced it".
type Debug struct {
	RequestBytes   []byte
	ResponseChunks [][]byte
}

// ReadCoilResult is the result of FC1/FC2.
type ReadCoilResult struct {
	Values []bool
	Raw    []byte
	Debug  *Debug
}

// ReadRegisterResult is the result of FC3/FC4 (and their Enron variants).
type ReadRegisterResult struct {
	// Values holds one entry per register read. Under the Enron long/float
	// ranges each entry is the 32-bit register value; otherwise each entry
	// is the 16-bit register value.
	Values []uint32
	Raw    []byte
	Debug  *Debug
}

// WriteCoilResult is the result of FC5.
type WriteCoilResult struct {
	Address uint16
	Value   bool
	Debug   *Debug
}

// WriteRegisterResult is the result of FC6 (and its Enron variant).
type WriteRegisterResult struct {
	Address uint16
	Value   uint32
	Debug   *Debug
}

// WriteMultipleResult is the result of FC15/FC16.
type WriteMultipleResult struct {
	Address uint16
	Count   uint16
	Debug   *Debug
}

// ReadFileRecordResult is the result of FC20.
//
// Only the first sub-request of a response is parsed, even though the
// protocol allows several; see DESIGN.md's Open Question note.
type ReadFileRecordResult struct {
	ReferenceType uint8
	// Payload is the raw record payload, or (when ReferenceType == 7) the
	// same bytes reinterpreted as ASCII and truncated at the first NUL.
	Payload       []byte
	SubRequestLen uint8
	Debug         *Debug
}

// ReadDeviceIdResult is the (possibly merged, across FC43 continuations)
// result of Read Device Identification.
type ReadDeviceIdResult struct {
	Objects         map[uint8]string
	ConformityLevel uint8
	Debug           *Debug
}

// ReadCompressedResult is the result of FC65.
type ReadCompressedResult struct {
	Values     []int16
	ErrorFlags uint16
	Raw        []byte
	Debug      *Debug
}

// ReadExceptionStatusResult is the result of FC7.
type ReadExceptionStatusResult struct {
	Status uint8
	Debug  *Debug
}
