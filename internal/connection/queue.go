package connection

// queue is the outbound FIFO buffer for envelopes composed while the
// transport is unavailable. Not safe for concurrent use: the Manager guards
// it with its own mutex.
type queue struct {
	entries [][]byte
}

// push appends a serialized envelope.
func (q *queue) push(data []byte) {
	q.entries = append(q.entries, data)
}

// drain transmits entries in enqueue order through write. It stops at the
// first failure, leaving the unsent remainder (including the failed entry)
// queued, and returns the number of entries sent.
func (q *queue) drain(write func([]byte) error) (int, error) {
	sent := 0
	for len(q.entries) > 0 {
		if err := write(q.entries[0]); err != nil {
			// The failed entry stays at the head for the next flush.
			return sent, err
		}
		q.entries = q.entries[1:]
		sent++
	}
	q.entries = nil
	return sent, nil
}

// len returns the number of buffered entries.
func (q *queue) len() int {
	return len(q.entries)
}

// clear drops all buffered entries and returns how many were dropped.
func (q *queue) clear() int {
	n := len(q.entries)
	q.entries = nil
	return n
}
