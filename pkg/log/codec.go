package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Trace files are a plain concatenation of CBOR-encoded events. Timestamps
// keep nanoseconds so that events from one run sort stably.
var (
	traceEnc = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	traceDec = mustDecMode(cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic("log: invalid trace encoder options: " + err.Error())
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic("log: invalid trace decoder options: " + err.Error())
	}
	return m
}

func newTraceEncoder(w io.Writer) *cbor.Encoder { return traceEnc.NewEncoder(w) }

func newTraceDecoder(r io.Reader) *cbor.Decoder { return traceDec.NewDecoder(r) }
