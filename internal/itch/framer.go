// Package itch is a length-prefixed frame reader in the style of Nasdaq's
// ITCH feed protocol: each message on the wire is a 2-byte big-endian
// length prefix followed by that many payload bytes, whose first byte is a
// single-character type tag. Framer only buffers and splits frames — it
// never decodes a payload itself, so it has no dependency on the matching
// core or on internal/net's message shapes.
package itch

import "errors"

var ErrFrameTooLarge = errors.New("itch: frame exceeds maximum message size")

// MaxMessageSize bounds a single frame's payload, guarding against a
// corrupt length prefix turning into an unbounded allocation. It sits
// comfortably under the 2-byte prefix's 65535 ceiling.
const MaxMessageSize = 32 * 1024

// Dispatcher receives one complete, type-tagged frame at a time. The byte
// slice passed to Handle is only valid for the duration of the call.
type Dispatcher interface {
	Handle(msgType byte, payload []byte) error
}

// Framer reassembles a byte stream arriving in arbitrary-sized chunks (as
// from a TCP socket) into complete ITCH-style frames. It is not safe for
// concurrent use — one Framer per connection.
type Framer struct {
	dispatcher Dispatcher

	// pending holds bytes read so far toward the frame currently being
	// assembled: either a partial 2-byte length prefix, or a partial
	// payload once the length is known.
	pending []byte
	size    int  // payload length of the frame in progress, once known
	sized   bool // whether size has been resolved from the length prefix yet
}

// NewFramer constructs a Framer that hands complete frames to d.
func NewFramer(d Dispatcher) *Framer {
	return &Framer{dispatcher: d}
}

// Feed appends newly-read bytes to the framer's internal buffer and
// dispatches every frame that becomes complete as a result. It is safe to
// call repeatedly with however much (or little) data a single socket read
// returned.
func (f *Framer) Feed(data []byte) error {
	for len(data) > 0 {
		if !f.sized {
			consumed, err := f.fillLengthPrefix(data)
			if err != nil {
				return err
			}
			data = data[consumed:]
			continue
		}

		need := f.size - len(f.pending)
		take := min(need, len(data))
		f.pending = append(f.pending, data[:take]...)
		data = data[take:]

		if len(f.pending) < f.size {
			continue
		}

		payload := f.pending
		f.pending = nil
		f.sized = false
		if len(payload) == 0 {
			continue
		}
		if err := f.dispatcher.Handle(payload[0], payload[1:]); err != nil {
			return err
		}
	}
	return nil
}

// fillLengthPrefix consumes bytes from data toward the 2-byte length
// prefix, returning how many bytes it consumed. Once 2 bytes have
// accumulated it resolves f.size and clears pending for the payload phase.
func (f *Framer) fillLengthPrefix(data []byte) (int, error) {
	need := 2 - len(f.pending)
	take := min(need, len(data))
	f.pending = append(f.pending, data[:take]...)
	if len(f.pending) < 2 {
		return take, nil
	}

	size := int(f.pending[0])<<8 | int(f.pending[1])
	if size > MaxMessageSize {
		return take, ErrFrameTooLarge
	}
	f.pending = nil
	f.size = size
	f.sized = true
	return take, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
