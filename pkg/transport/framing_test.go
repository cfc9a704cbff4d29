package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alljoyn/services-onboarding/pkg/log"
)

type traceRecorder struct {
	events []log.Event
}

func (r *traceRecorder) Log(e log.Event) { r.events = append(r.events, e) }

func TestFramerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramer(&buf, 0)
	rec := &traceRecorder{}
	f.SetTrace(rec, "conn-1")

	require.NoError(t, f.WriteFrame([]byte{0xA1, 0x01, 0x02}))
	require.NoError(t, f.WriteFrame([]byte("second")))
	assert.Equal(t, []byte{0, 0, 0, 3, 0xA1, 0x01, 0x02}, buf.Bytes()[:7])

	got, err := f.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA1, 0x01, 0x02}, got)

	got, err = f.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	_, err = f.ReadFrame()
	assert.Equal(t, io.EOF, err)

	require.Len(t, rec.events, 4)
	assert.Equal(t, log.DirectionOut, rec.events[0].Direction)
	assert.Equal(t, log.DirectionIn, rec.events[2].Direction)
	assert.Equal(t, "conn-1", rec.events[2].SessionID)
	assert.Equal(t, 7, rec.events[0].Frame.Size)
}

func TestFrameWriterLimits(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf, 8)

	assert.ErrorIs(t, w.WriteFrame(nil), ErrMessageEmpty)
	assert.ErrorIs(t, w.WriteFrame(make([]byte, 9)), ErrMessageTooLarge)
	assert.NoError(t, w.WriteFrame(make([]byte, 8)))
}

func TestFrameReaderErrors(t *testing.T) {
	t.Run("ZeroLength", func(t *testing.T) {
		r := NewFrameReader(bytes.NewReader([]byte{0, 0, 0, 0}), 0)
		_, err := r.ReadFrame()
		assert.ErrorIs(t, err, ErrMessageEmpty)
	})

	t.Run("TooLarge", func(t *testing.T) {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], 100)
		r := NewFrameReader(bytes.NewReader(hdr[:]), 10)
		_, err := r.ReadFrame()
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("TruncatedPrefix", func(t *testing.T) {
		r := NewFrameReader(bytes.NewReader([]byte{0, 0}), 0)
		_, err := r.ReadFrame()
		assert.ErrorIs(t, err, ErrFrameTruncated)
	})

	t.Run("TruncatedPayload", func(t *testing.T) {
		r := NewFrameReader(bytes.NewReader([]byte{0, 0, 0, 5, 1, 2}), 0)
		_, err := r.ReadFrame()
		assert.True(t, errors.Is(err, ErrFrameTruncated))
	})
}

func TestFrameEventTruncatesData(t *testing.T) {
	e := frameEvent("c", make([]byte, MaxLogFrameDataSize+10), log.DirectionOut)
	assert.True(t, e.Frame.Truncated)
	assert.Len(t, e.Frame.Data, MaxLogFrameDataSize)
	assert.Equal(t, MaxLogFrameDataSize+10+LengthPrefixSize, e.Frame.Size)
}
