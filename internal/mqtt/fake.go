package mqtt

import "sync"

// Message is one publish as it would reach the broker.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakePublisher records everything a RealPublisher would send, for tests.
// Failed publishes are not recorded.
type FakePublisher struct {
	mu sync.Mutex

	Events       []MinuteEvent // minute events, in publish order
	Payloads     [][]byte      // formatted minute payloads, parallel to Events
	SystemEvents []SystemEvent
	// SystemPayloads is parallel to SystemEvents.
	SystemPayloads [][]byte

	// Messages logs both topics in the order they were sent.
	Messages []Message

	PublishError       error // returned by Publish when set
	PublishSystemError error // returned by PublishSystem when set

	Closed    bool
	Connected bool
	Pending   int // returned by Buffered
}

// NewFakePublisher returns a connected fake.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

func (f *FakePublisher) Publish(event MinuteEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.PublishError; err != nil {
		return err
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Messages = append(f.Messages, Message{Topic: TopicMinute, Payload: payload})
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.PublishSystemError; err != nil {
		return err
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Messages = append(f.Messages, Message{Topic: TopicSystem, Payload: payload, Retained: event.Retained})
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

func (f *FakePublisher) Buffered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pending
}

// SystemEventNames lists recorded system event names in order.
func (f *FakePublisher) SystemEventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}
