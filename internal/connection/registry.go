package connection

// registry tracks the channels the client wants active. Set semantics with
// preserved insertion order, so replay after reconnect matches subscribe
// order. Not safe for concurrent use: the Manager guards it with its mutex.
type registry struct {
	order []string
	set   map[string]struct{}
}

func newRegistry() *registry {
	return &registry{set: make(map[string]struct{})}
}

// add tracks a channel. Returns false when it was already tracked.
func (r *registry) add(channel string) bool {
	if _, ok := r.set[channel]; ok {
		return false
	}
	r.set[channel] = struct{}{}
	r.order = append(r.order, channel)
	return true
}

// remove stops tracking a channel. Returns false when it was not tracked.
func (r *registry) remove(channel string) bool {
	if _, ok := r.set[channel]; !ok {
		return false
	}
	delete(r.set, channel)
	for i, c := range r.order {
		if c == channel {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// channels returns the tracked set in insertion order.
func (r *registry) channels() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// len returns the number of tracked channels.
func (r *registry) len() int {
	return len(r.order)
}
