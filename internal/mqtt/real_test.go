package mqtt

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// fakeToken completes immediately unless timeout is set.
type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.timeout {
		close(ch)
	}
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client // nil; unimplemented methods panic

	mu           sync.Mutex
	open         bool
	token        *fakeToken
	sent         []published
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	c.open = false
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisherWithClient(client, 10)

	if err := p.Publish(MinuteEvent{Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(client.sent))
	}
	if client.sent[0].topic != TopicMinute || client.sent[0].qos != 0 || client.sent[0].retained {
		t.Errorf("minute message: %+v", client.sent[0])
	}
	if client.sent[1].topic != TopicSystem || client.sent[1].qos != 1 || !client.sent[1].retained {
		t.Errorf("system message: %+v", client.sent[1])
	}
	if !p.IsConnected() {
		t.Error("expected IsConnected")
	}
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	client := &fakeClient{}
	p := newPublisherWithClient(client, 10)

	for i := 0; i < 3; i++ {
		if err := p.Publish(MinuteEvent{Timestamp: time.Now(), Rotation: i}); err != nil {
			t.Fatalf("offline publish should buffer, got %v", err)
		}
	}
	if len(client.sent) != 0 {
		t.Fatalf("nothing should reach the client while offline, got %d", len(client.sent))
	}
	if p.Buffered() != 3 {
		t.Fatalf("expected 3 buffered, got %d", p.Buffered())
	}

	client.open = true
	p.flush()

	if p.Buffered() != 0 {
		t.Errorf("expected empty buffer after flush, got %d", p.Buffered())
	}
	if len(client.sent) != 3 {
		t.Fatalf("expected 3 replayed messages, got %d", len(client.sent))
	}
	for i, m := range client.sent {
		if m.topic != TopicMinute {
			t.Errorf("message %d: unexpected topic %s", i, m.topic)
		}
	}
}

func TestRealPublisherBufferOverflowKeepsNewest(t *testing.T) {
	client := &fakeClient{}
	p := newPublisherWithClient(client, 2)

	p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})
	p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN"})

	client.open = true
	p.flush()

	if len(client.sent) != 2 {
		t.Fatalf("expected 2 replayed messages, got %d", len(client.sent))
	}
	if !strings.Contains(string(client.sent[0].payload), `"HEARTBEAT"`) {
		t.Errorf("oldest message should have been dropped, got %s", client.sent[0].payload)
	}
	if !strings.Contains(string(client.sent[1].payload), `"SHUTDOWN"`) {
		t.Errorf("newest message should be replayed last, got %s", client.sent[1].payload)
	}
}

func TestRealPublisherReplaysLateBufferedBeforeNextSend(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisherWithClient(client, 10)
	p.flush() // OnConnect ran with nothing buffered

	// The connection drops and comes back without another OnConnect.
	client.open = false
	p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})
	client.open = true

	if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Buffered() != 0 {
		t.Errorf("expected empty buffer, got %d", p.Buffered())
	}
	if len(client.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(client.sent))
	}
	if !strings.Contains(string(client.sent[0].payload), `"HEARTBEAT"`) {
		t.Errorf("buffered message should go out first, got %s", client.sent[0].payload)
	}
	if !strings.Contains(string(client.sent[1].payload), `"SHUTDOWN"`) {
		t.Errorf("new message should follow the backlog, got %s", client.sent[1].payload)
	}
}

func TestRealPublisherTimeout(t *testing.T) {
	client := &fakeClient{open: true, token: &fakeToken{timeout: true}}
	p := newPublisherWithClient(client, 10)

	if err := p.Publish(MinuteEvent{Timestamp: time.Now()}); err == nil {
		t.Error("expected timeout error")
	}
}

func TestRealPublisherError(t *testing.T) {
	brokerErr := errors.New("not authorized")
	client := &fakeClient{open: true, token: &fakeToken{err: brokerErr}}
	p := newPublisherWithClient(client, 10)

	err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	if !errors.Is(err, brokerErr) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
}

func TestRealPublisherClose(t *testing.T) {
	client := &fakeClient{open: true}
	p := newPublisherWithClient(client, 10)

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !client.disconnected {
		t.Error("expected Disconnect")
	}
	if p.IsConnected() {
		t.Error("expected disconnected after Close")
	}
}
