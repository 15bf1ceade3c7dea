package channel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/reply"
	"github.com/wippyai/ridgen/resource"
)

// Options configures a Channel.
type Options struct {
	// Timeout applies to Await calls that pass a zero timeout. Zero waits
	// until the context is done.
	Timeout time.Duration
	// Buffer is the capacity of each subscriber channel. A subscriber that
	// falls Buffer entries behind misses the entries posted meanwhile; see
	// Channel.Dropped.
	Buffer int
	// Ledger owns reply data crossing as C strings. Nil uses a private one.
	Ledger *resource.Ledger
	// DebugReply, when set, observes every decoded reply.
	DebugReply func(reply.Reply)
}

// Channel correlates posted replies with pending requests. Each request id
// completes at most once; replies arriving after a timeout, for unknown
// ids, or a second time for the same id are dropped. Every decoded reply is
// also broadcast to subscribers in posting order. Thread-safe.
type Channel struct {
	opts    Options
	ledger  *resource.Ledger
	lastID  uint64
	pending map[uint64]*slot
	replies []chan reply.Reply
	logs    []chan reply.LogFrame
	dropped uint64
	mu      sync.Mutex
}

// slot holds at most one reply. It stays in pending until awaited, so a
// reply posted before Await is kept.
type slot struct {
	ch   chan reply.Reply
	done bool
}

// New creates a channel.
func New(opts Options) *Channel {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	ledger := opts.Ledger
	if ledger == nil {
		ledger = resource.NewLedger()
	}
	return &Channel{opts: opts, ledger: ledger, pending: make(map[uint64]*slot)}
}

// NextReqID mints a request id and opens its reply slot. Ids start at 1;
// 0 marks uncorrelated broadcasts.
func (c *Channel) NextReqID() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastID >= reply.MaxID {
		return 0, errors.Overflow(errors.PhaseHost, []string{"channel", "req_id"}, c.lastID+1, "47-bit request id")
	}
	c.lastID++
	c.pending[c.lastID] = &slot{ch: make(chan reply.Reply, 1)}
	return c.lastID, nil
}

// Pending returns the number of reply slots not yet awaited.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Await waits for the reply to id. A zero timeout falls back to
// Options.Timeout. On expiry the slot is closed and a host timeout error
// naming the caller is returned.
func (c *Channel) Await(ctx context.Context, id uint64, timeout time.Duration) (reply.Reply, error) {
	return c.await(ctx, id, timeout, callSite(2))
}

func (c *Channel) await(ctx context.Context, id uint64, timeout time.Duration, site string) (reply.Reply, error) {
	c.mu.Lock()
	s, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return reply.Reply{}, errors.NotFound(errors.PhaseHost, "pending request", fmt.Sprint(id))
	}

	if timeout == 0 {
		timeout = c.opts.Timeout
	}
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case r := <-s.ch:
		c.close(id)
		return r, nil
	case <-expired:
		c.close(id)
		err := errors.HostTimeout(id, site, timeout)
		Logger().Warn("reply timed out", zap.Uint64("req_id", id), zap.Error(err))
		return reply.Reply{}, err
	case <-ctx.Done():
		c.close(id)
		return reply.Reply{}, errors.Wrap(errors.PhaseHost, errors.KindHostTimeout, ctx.Err(), fmt.Sprintf("await request %d", id))
	}
}

func (c *Channel) close(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Send mints a request id, hands it to dispatch and awaits the reply.
// dispatch runs synchronously, the way a message entry returns only after
// its update completed.
func (c *Channel) Send(ctx context.Context, timeout time.Duration, dispatch func(reqID uint64)) (reply.Reply, error) {
	id, err := c.NextReqID()
	if err != nil {
		return reply.Reply{}, err
	}
	dispatch(id)
	return c.await(ctx, id, timeout, callSite(2))
}

// Post delivers one packed reply. Values without the reply flag are bare
// integer messages and are ignored.
func (c *Channel) Post(p reply.Posted) {
	r, err := p.Unpack()
	if err != nil {
		Logger().Debug("ignored bare message", zap.Int64("packed", p.Packed))
		return
	}
	if c.opts.DebugReply != nil {
		c.opts.DebugReply(r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Correlated() {
		s, ok := c.pending[r.ID]
		switch {
		case !ok:
			Logger().Debug("dropped reply", zap.Uint64("req_id", r.ID), zap.Uint16("index", r.Index))
		case s.done:
			Logger().Debug("dropped duplicate reply", zap.Uint64("req_id", r.ID), zap.Uint16("index", r.Index))
		default:
			s.done = true
			s.ch <- r
		}
	}
	for _, ch := range c.replies {
		select {
		case ch <- r:
		default:
			c.dropped++
			Logger().Warn("reply subscriber is full", zap.Uint64("req_id", r.ID))
		}
	}
}

// PostCString delivers a reply whose data crossed the boundary as the C
// string h. The channel takes ownership of h and frees it; data that is
// not valid UTF-8 is an error and the reply is not delivered.
func (c *Channel) PostCString(packed int64, h resource.Handle) error {
	data, err := c.ledger.ReclaimCString(h)
	if err != nil {
		return err
	}
	c.Post(reply.Posted{Packed: packed, Data: data, HasData: true})
	return nil
}

// Reply encodes and posts a reply correlated with id.
func (c *Channel) Reply(idx uint16, id uint64) error {
	packed, err := reply.EncodeWithID(idx, id)
	if err != nil {
		return err
	}
	c.Post(reply.Posted{Packed: packed})
	return nil
}

// ReplyData is Reply with a string payload. The payload is handed over as
// a C string, so it must not contain a NUL byte.
func (c *Channel) ReplyData(idx uint16, id uint64, data string) error {
	packed, err := reply.EncodeWithID(idx, id)
	if err != nil {
		return err
	}
	h, err := c.ledger.LeakCString(data)
	if err != nil {
		return err
	}
	return c.PostCString(packed, h)
}

// Outstanding returns the number of reply payloads handed over but not
// yet taken back.
func (c *Channel) Outstanding() int {
	return len(c.ledger.Outstanding(resource.KindCString))
}

// Dropped returns how many replies and log frames full subscribers missed.
func (c *Channel) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Broadcast posts an uncorrelated reply.
func (c *Channel) Broadcast(idx uint16) {
	c.Post(reply.Posted{Packed: reply.EncodeWithoutID(idx)})
}

// PostLog delivers a log frame string. Strings that are not log frames are
// dropped.
func (c *Channel) PostLog(s string) {
	f, ok := reply.ParseLogFrame(s)
	if !ok {
		Logger().Debug("dropped malformed log frame", zap.String("frame", s))
		return
	}
	if f.Kind.IsError() {
		Logger().Warn(f.Message, zap.String("kind", string(f.Kind)), zap.String("detail", f.Detail))
	} else {
		Logger().Debug(f.Message, zap.String("kind", string(f.Kind)), zap.String("detail", f.Detail))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.logs {
		select {
		case ch <- f:
		default:
			c.dropped++
			Logger().Warn("log subscriber is full")
		}
	}
}

// Replies subscribes to every decoded reply. Delivery never blocks the
// poster: a subscriber whose buffer is full misses the reply, which is
// counted by Dropped. Replies that are delivered keep posting order. The
// returned func unsubscribes and closes the channel.
func (c *Channel) Replies() (<-chan reply.Reply, func()) {
	ch := make(chan reply.Reply, c.opts.Buffer)
	c.mu.Lock()
	c.replies = append(c.replies, ch)
	c.mu.Unlock()
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.replies {
			if s == ch {
				c.replies = append(c.replies[:i], c.replies[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// Logs subscribes to log frames, with the same delivery rules as Replies.
func (c *Channel) Logs() (<-chan reply.LogFrame, func()) {
	ch := make(chan reply.LogFrame, c.opts.Buffer)
	c.mu.Lock()
	c.logs = append(c.logs, ch)
	c.mu.Unlock()
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.logs {
			if s == ch {
				c.logs = append(c.logs[:i], c.logs[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
