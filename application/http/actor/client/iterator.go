package client

import (
	"io"

	"silq/application/http/semantic"
	"silq/lib/fault"
)

type iterState uint8

const (
	stateUninitialized iterState = iota
	stateActive
	stateTerminated
)

// cursor is the position of an external iterator.
// Terminated is absorbing.
type cursor struct {
	state iterState
	index int
}

func (c *cursor) Valid() bool { return c.state == stateActive }

func (c *cursor) Key() (int, error) {
	if c.state != stateActive {
		return 0, errNotActive
	}
	return c.index, nil
}

func (c *cursor) moveTo(found bool) {
	switch {
	case !found:
		c.state = stateTerminated
	case c.state == stateActive:
		c.index++
	default:
		c.state, c.index = stateActive, 0
	}
}

var errNotActive = fault.New(fault.InvalidState, "iterator is not on an element")

// HeaderIterator walks the response fields in receipt order.
type HeaderIterator struct {
	cursor
	fields []semantic.Field
}

// Rewind moves onto the first field. Only the first call does anything.
func (it *HeaderIterator) Rewind() {
	if it.state != stateUninitialized {
		return
	}
	it.moveTo(len(it.fields) > 0)
}

func (it *HeaderIterator) Next() {
	if it.state != stateActive {
		return
	}
	it.moveTo(it.index+1 < len(it.fields))
}

func (it *HeaderIterator) Current() (semantic.Field, error) {
	if it.state != stateActive {
		return semantic.Field{}, errNotActive
	}
	return it.fields[it.index], nil
}

// FrameIterator pulls body frames one at a time.
// Trailer fields are recorded on the response rather than yielded.
type FrameIterator struct {
	cursor
	body    *bodyStream
	current []byte
}

// Rewind fetches the first frame. Only the first call does anything.
func (it *FrameIterator) Rewind() error {
	if it.state != stateUninitialized {
		return nil
	}
	return it.fetch()
}

func (it *FrameIterator) Next() error {
	if it.state != stateActive {
		return nil
	}
	return it.fetch()
}

func (it *FrameIterator) Current() ([]byte, error) {
	if it.state != stateActive {
		return nil, errNotActive
	}
	return it.current, nil
}

// Close releases the rest of the body.
func (it *FrameIterator) Close() error {
	it.state, it.current = stateTerminated, nil
	it.body.release()
	return nil
}

func (it *FrameIterator) fetch() error {
	data, err := it.body.next()
	if err != nil {
		it.moveTo(false)
		it.current = nil
		if err == io.EOF {
			return nil
		}
		it.body.release()
		return err
	}

	it.moveTo(true)
	it.current = data
	return nil
}
