// Package fakeiter is an in-memory message.Iterator over a fixed slice,
// used by tests and the demo command in place of a real trace-IR
// producer.
package fakeiter

import "github.com/ctftrace/fs-sink/internal/message"

// Iterator replays a fixed slice of messages, one per Next call, then
// reports message.StatusEnd forever after.
type Iterator struct {
	messages []message.Message
	pos      int
}

// New returns an Iterator that replays msgs in order.
func New(msgs []message.Message) *Iterator {
	return &Iterator{messages: msgs}
}

func (it *Iterator) Next() (message.Message, message.Status, error) {
	if it.pos >= len(it.messages) {
		return message.Message{}, message.StatusEnd, nil
	}
	m := it.messages[it.pos]
	it.pos++
	return m, message.StatusOK, nil
}
