package traceir

// StreamInstance is one running instance of a StreamClass: the producer
// creates one per logical stream (e.g. one per CPU, one per session) and
// reuses its identity across every packet and event it emits.
type StreamInstance struct {
	ID          uint64
	StreamClass *StreamClass
}

// Packet is one instance of a StreamClass's packet context, scoped to the
// span between a packet-begin and the matching packet-end message.
type Packet struct {
	StreamInstance *StreamInstance
	Context        Field // nil if StreamClass.PacketContextFC is nil
}

// Event is one instance of an EventClass, carrying whichever of its
// context/payload fields the class declares. CommonContext, Specific, and
// Payload are nil when the owning class declared no such field.
type Event struct {
	EventClass     *EventClass
	StreamInstance *StreamInstance
	HasTimestamp   bool
	Timestamp      uint64
	CommonContext  Field
	Specific       Field
	Payload        Field
}
