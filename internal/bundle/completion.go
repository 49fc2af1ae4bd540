package bundle

import "context"

// completion is a single-fire completion signal. complete stores the outcome
// and unblocks every waiter; it must be called exactly once.
type completion struct {
	ch  chan struct{}
	err error
}

func newCompletion() *completion {
	return &completion{ch: make(chan struct{})}
}

func (c *completion) complete(err error) {
	c.err = err
	close(c.ch)
}

func (c *completion) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ch:
		return c.err
	}
}
