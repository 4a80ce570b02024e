package srs

import "context"

// The next card to present is computed on a background goroutine while
// the student is still answering the current one, overlapping the scan
// with human think-time. The goroutine only reads scheduling state;
// every mutating deck operation cancels it and blocks until it has
// exited before touching anything it might be reading.

type prefetcher struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Handle
	ok     bool
}

// cancelCheckStride is how many cards the scan visits between
// cancellation checks.
const cancelCheckStride = 64

// StartPrefetch begins computing the next card to present in the
// background. A previous computation still in flight is cancelled
// first.
func (d *Deck) StartPrefetch() {
	d.cancelPrefetch()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.pf.cancel = cancel
	d.pf.done = done
	d.pf.ok = false
	go func() {
		defer close(done)
		h, ok := d.pickNextCard(ctx)
		if ctx.Err() != nil {
			return
		}
		d.pf.result, d.pf.ok = h, ok
	}()
}

// cancelPrefetch requests cancellation and joins the background
// computation. Every mutator calls this before its first write.
func (d *Deck) cancelPrefetch() {
	if d.pf.done == nil {
		return
	}
	d.pf.cancel()
	<-d.pf.done
	d.pf.cancel = nil
	d.pf.done = nil
	d.pf.ok = false
}

// NextCard returns the next card to present today. A finished or
// in-flight prefetch result is used when available; otherwise the scan
// runs synchronously. The second result is false when nothing is left
// to test today.
func (d *Deck) NextCard() (Handle, bool) {
	if d.pf.done != nil {
		<-d.pf.done
		d.pf.cancel = nil
		d.pf.done = nil
		if d.pf.ok {
			h, ok := d.pf.result, true
			d.pf.ok = false
			return h, ok
		}
	}
	return d.pickNextCard(context.Background())
}

// pickNextCard scans for the most urgent card: the earliest-due card not
// yet shown today, then failed cards owed another showing, oldest
// answer first.
func (d *Deck) pickNextCard(ctx context.Context) (Handle, bool) {
	if d.testDay < 0 {
		return NoHandle, false
	}
	endOfDay := (d.testDay + 1).Unix()
	best := NoHandle
	var bestDue int64
	for i, c := range d.cards {
		if i%cancelCheckStride == 0 && ctx.Err() != nil {
			return NoHandle, false
		}
		if c.Repeats > 0 {
			continue
		}
		due := c.DueUnix()
		if due >= endOfDay {
			continue
		}
		if best == NoHandle || due < bestDue {
			best, bestDue = Handle(i), due
		}
	}
	if best != NoHandle {
		return best, true
	}
	for _, h := range d.tested {
		if ctx.Err() != nil {
			return NoHandle, false
		}
		c := d.cards[h]
		if c.Repeats > 0 && !c.lastAnswer.Correct() {
			return h, true
		}
	}
	return NoHandle, false
}
