package uat

import (
	"go.uber.org/atomic"
)

// dmaRelay moves bytes from a circular DMA region into the byte queue.
//
// drain must not run concurrently with itself for the same relay: the driver
// serializes its idle-line callbacks, and Reset only rewinds the cursor after
// reception has been aborted. The cursor is atomic so that a rewind is
// observed by the next idle event.
type dmaRelay struct {
	region []byte
	cursor atomic.Int64
	queue  *byteQueue
	stats  *counters
}

func newDMARelay(size int, q *byteQueue, stats *counters) *dmaRelay {
	return &dmaRelay{
		region: make([]byte, size),
		queue:  q,
		stats:  stats,
	}
}

// drain queues region bytes in [cursor, current), wrapping at the end of the
// region, and advances the cursor to current. It reports false if current
// is out of range or some bytes could not be queued; those bytes are lost.
func (r *dmaRelay) drain(current int) bool {
	if current < 0 || current > len(r.region) {
		return false
	}
	last := int(r.cursor.Load())
	if current == last {
		return true
	}

	var ok bool
	if current > last {
		ok = r.push(r.region[last:current])
	} else {
		ok = r.push(r.region[last:])
		if ok && current > 0 {
			ok = r.push(r.region[:current])
		} else if current > 0 {
			r.stats.bytesDropped.Add(uint64(current))
		}
	}

	r.cursor.Store(int64(current))
	return ok
}

func (r *dmaRelay) push(p []byte) bool {
	if len(p) == 0 {
		return true
	}
	n := r.queue.put(p)
	r.stats.bytesRelayed.Add(uint64(n))
	if n < len(p) {
		r.stats.bytesDropped.Add(uint64(len(p) - n))
		return false
	}
	return true
}

func (r *dmaRelay) rewind() {
	r.cursor.Store(0)
}
