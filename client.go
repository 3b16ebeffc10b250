package climabus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
)

// Client owns an open adapter and turns its channels into a bounded receive.
type Client struct {
	adapter Adapter
	log     zerolog.Logger

	attempts uint
	delay    time.Duration

	// err is the terminal adapter error; frames queued before it are still
	// handed out.
	err error

	frames   atomic.Uint64
	errors   atomic.Uint64
	warnings atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type ClientOption func(*Client)

// WithLogger sets the logger adapter events are forwarded to.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// WithOpenRetry sets how many times Open is attempted and the delay between
// attempts.
func WithOpenRetry(attempts uint, delay time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.delay = delay
	}
}

// NewClient creates the named adapter and opens it.
func NewClient(ctx context.Context, adapterName string, cfg *AdapterConfig, opts ...ClientOption) (*Client, error) {
	a, err := NewAdapter(adapterName, cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithAdapter(ctx, a, opts...)
}

// NewClientWithAdapter opens a, retrying recoverable failures.
func NewClientWithAdapter(ctx context.Context, a Adapter, opts ...ClientOption) (*Client, error) {
	if a == nil {
		return nil, ErrNilAdapter
	}
	c := &Client{
		adapter:  a,
		log:      zerolog.Nop(),
		attempts: 3,
		delay:    500 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}

	c.wg.Add(1)
	go c.forwardEvents()

	var lastErr error
	err := retry.Do(func() error {
		lastErr = a.Open(ctx)
		if lastErr != nil && !IsRecoverable(lastErr) {
			return retry.Unrecoverable(lastErr)
		}
		return lastErr
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Err(err).Uint("attempt", n+1).Str("adapter", a.Name()).Msg("open failed, retrying")
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.stopEvents()
		if lastErr == nil {
			lastErr = err
		}
		return nil, fmt.Errorf("open %s: %w", a.Name(), lastErr)
	}
	c.log.Info().Str("adapter", a.Name()).Msg("adapter open")
	return c, nil
}

// Adapter returns the underlying adapter.
func (c *Client) Adapter() Adapter {
	return c.adapter
}

// Dropped returns the adapter's dropped frame count when it keeps one.
func (c *Client) Dropped() uint64 {
	if d, ok := c.adapter.(interface{ Dropped() uint64 }); ok {
		return d.Dropped()
	}
	return 0
}

// Receive waits at most budget for one frame. No frame within the budget is
// (nil, false, nil). A non-nil error is terminal: the adapter reported a
// fatal error, was closed, or ctx ended.
func (c *Client) Receive(ctx context.Context, budget time.Duration) (*CANFrame, bool, error) {
	select {
	case f := <-c.adapter.Recv():
		return c.received(f)
	default:
	}
	if c.err != nil {
		return nil, false, c.err
	}
	if budget <= 0 {
		select {
		case err := <-c.adapter.Err():
			return c.fail(err)
		default:
			return nil, false, nil
		}
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case f := <-c.adapter.Recv():
		return c.received(f)
	case err := <-c.adapter.Err():
		return c.fail(err)
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (c *Client) fail(err error) (*CANFrame, bool, error) {
	if err == nil {
		err = ErrAdapterClosed
	}
	c.err = err
	select {
	case f := <-c.adapter.Recv():
		return c.received(f)
	default:
	}
	return nil, false, err
}

func (c *Client) received(f *CANFrame) (*CANFrame, bool, error) {
	c.frames.Add(1)
	return f, true, nil
}

// Close closes the adapter and stops event forwarding.
func (c *Client) Close() error {
	err := c.adapter.Close()
	c.stopEvents()
	return err
}

func (c *Client) stopEvents() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

func (c *Client) forwardEvents() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case evt := <-c.adapter.Event():
			c.logEvent(evt)
		}
	}
}

func (c *Client) logEvent(evt Event) {
	var e *zerolog.Event
	switch evt.Type {
	case EventTypeError:
		c.errors.Add(1)
		e = c.log.Error()
	case EventTypeWarning:
		c.warnings.Add(1)
		e = c.log.Warn()
	case EventTypeInfo:
		e = c.log.Info()
	default:
		e = c.log.Debug()
	}
	e.Str("adapter", c.adapter.Name()).Msg(evt.Details)
}
