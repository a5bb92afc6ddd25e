package itch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingDispatcher struct {
	frames [][]byte
	types  []byte
}

func (r *recordingDispatcher) Handle(msgType byte, payload []byte) error {
	r.types = append(r.types, msgType)
	cp := make([]byte, len(payload))
	copy(cp, payload)
	r.frames = append(r.frames, cp)
	return nil
}

func frame(msgType byte, payload string) []byte {
	body := append([]byte{msgType}, []byte(payload)...)
	size := len(body)
	return append([]byte{byte(size >> 8), byte(size)}, body...)
}

func TestFramer_SingleFrameInOneChunk(t *testing.T) {
	d := &recordingDispatcher{}
	f := NewFramer(d)

	assert.NoError(t, f.Feed(frame('N', "hello")))
	assert.Equal(t, []byte{'N'}, d.types)
	assert.Equal(t, [][]byte{[]byte("hello")}, d.frames)
}

func TestFramer_FrameSplitAcrossManyChunks(t *testing.T) {
	d := &recordingDispatcher{}
	f := NewFramer(d)

	whole := frame('C', "cancel-this-order")
	for _, b := range whole {
		assert.NoError(t, f.Feed([]byte{b}))
	}
	assert.Equal(t, []byte{'C'}, d.types)
	assert.Equal(t, [][]byte{[]byte("cancel-this-order")}, d.frames)
}

func TestFramer_MultipleFramesInOneChunk(t *testing.T) {
	d := &recordingDispatcher{}
	f := NewFramer(d)

	buf := append(frame('N', "first"), frame('N', "second")...)
	assert.NoError(t, f.Feed(buf))

	assert.Equal(t, []byte{'N', 'N'}, d.types)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, d.frames)
}

func TestFramer_OversizedFrameRejected(t *testing.T) {
	d := &recordingDispatcher{}
	f := NewFramer(d)

	oversized := MaxMessageSize + 1
	header := []byte{byte(oversized >> 8), byte(oversized)}
	err := f.Feed(header)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
