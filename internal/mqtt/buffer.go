package mqtt

// bufferedMsg is a publish held back while the broker is unreachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest messages up to a fixed capacity, oldest first.
// The caller must synchronize.
type ringBuffer struct {
	slots   []bufferedMsg
	start   int // index of the oldest message
	n       int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{slots: make([]bufferedMsg, max(capacity, 1))}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	size := len(r.slots)
	if r.n < size {
		r.slots[(r.start+r.n)%size] = msg
		r.n++
		return
	}
	if r.dropped == 0 {
		logger.Warn("offline buffer full, dropping oldest", "capacity", size)
	}
	r.dropped++
	r.slots[r.start] = msg
	r.start = (r.start + 1) % size
}

// drainAll empties the buffer. It returns the held messages oldest first and
// how many older ones were overwritten.
func (r *ringBuffer) drainAll() ([]bufferedMsg, int) {
	var out []bufferedMsg
	if r.n > 0 {
		out = make([]bufferedMsg, 0, r.n)
		for i := 0; i < r.n; i++ {
			out = append(out, r.slots[(r.start+i)%len(r.slots)])
		}
	}
	dropped := r.dropped
	r.start, r.n, r.dropped = 0, 0, 0
	return out, dropped
}

func (r *ringBuffer) len() int { return r.n }
