// Package notify implements the authentication notification hub: a
// multi-channel publish/subscribe fan-out with a bounded history of the
// most recent notifications. The hub never returns errors — it serves
// observability, so internal faults are logged, not propagated.
package notify

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Severity is the presentation weight of a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeveritySuccess
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeveritySuccess:
		return "success"
	default:
		return "info"
	}
}

// Channel is a named notification delivery target.
type Channel string

const (
	ChannelConsole Channel = "console"
	ChannelTUI     Channel = "tui"
	ChannelLog     Channel = "log"
	// ChannelAll expands to console, tui, and log at delivery time.
	ChannelAll Channel = "all"
)

// historyCap bounds the notification history; the oldest entry is evicted
// once the ring is full.
const historyCap = 100

// Notification is an immutable record of an authentication state change.
type Notification struct {
	Message    string
	Severity   Severity
	TokenState string
	Context    map[string]string
	Timestamp  time.Time
	Channels   []Channel
}

// Subscriber receives notifications delivered on a channel it subscribed to.
type Subscriber func(Notification)

// Subscription identifies a registered subscriber so it can be removed.
// The zero value never matches a registration; unsubscribing it is a no-op.
type Subscription struct {
	channel Channel
	id      uint64
}

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Hub delivers authentication notifications to channels and their
// subscribers, and keeps a bounded history. Construct one per process and
// inject it — there is no package-level instance.
type Hub struct {
	logger  *slog.Logger
	console *consoleWriter

	mu          sync.Mutex
	nextID      uint64
	subscribers map[Channel][]subscriberEntry
	history     []Notification

	// now is the clock for notification timestamps; tests override it.
	now func() time.Time
}

// HubOption configures a Hub at construction.
type HubOption func(*Hub)

// WithConsoleOutput redirects the console channel's built-in handler to out.
// Output written this way is unstyled. Used by tests and by callers that
// multiplex stderr.
func WithConsoleOutput(out io.Writer) HubOption {
	return func(h *Hub) { h.console = newConsoleWriter(out) }
}

// NewHub creates a Hub. The console channel writes styled output to stderr;
// the log channel emits through logger.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		logger:      logger,
		console:     newConsoleWriter(nil),
		subscribers: make(map[Channel][]subscriberEntry),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Subscribe registers fn on channel and returns a handle for Unsubscribe.
func (h *Hub) Subscribe(channel Channel, fn Subscriber) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.subscribers[channel] = append(h.subscribers[channel], subscriberEntry{id: h.nextID, fn: fn})

	h.logger.Debug("notification subscriber added",
		slog.String("channel", string(channel)),
		slog.Uint64("id", h.nextID),
	)

	return Subscription{channel: channel, id: h.nextID}
}

// Unsubscribe removes a previously registered subscriber. Removing an
// unknown or already-removed subscription is a no-op.
func (h *Hub) Unsubscribe(sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.subscribers[sub.channel]
	for i, e := range entries {
		if e.id == sub.id {
			h.subscribers[sub.channel] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Option configures a single Notify call.
type Option func(*Notification)

// WithSeverity sets the notification severity (default info).
func WithSeverity(s Severity) Option {
	return func(n *Notification) { n.Severity = s }
}

// WithContext attaches context key/values shown alongside the message.
func WithContext(ctx map[string]string) Option {
	return func(n *Notification) { n.Context = ctx }
}

// WithChannels overrides the default {console, log} delivery set.
func WithChannels(channels ...Channel) Option {
	return func(n *Notification) { n.Channels = channels }
}

// Notify builds a notification, records it in history, and delivers it to
// each target channel: the channel's built-in handling runs first, then
// registered subscribers, each isolated so a panicking subscriber cannot
// block delivery to the rest.
func (h *Hub) Notify(message, tokenState string, opts ...Option) {
	n := Notification{
		Message:    message,
		Severity:   SeverityInfo,
		TokenState: tokenState,
		Timestamp:  h.now(),
		Channels:   []Channel{ChannelConsole, ChannelLog},
	}

	for _, opt := range opts {
		opt(&n)
	}

	h.mu.Lock()
	h.history = append(h.history, n)
	if len(h.history) > historyCap {
		copy(h.history, h.history[1:])
		h.history = h.history[:historyCap]
	}
	h.mu.Unlock()

	for _, ch := range n.Channels {
		if ch == ChannelAll {
			h.deliver(ChannelConsole, n)
			h.deliver(ChannelTUI, n)
			h.deliver(ChannelLog, n)

			continue
		}

		h.deliver(ch, n)
	}
}

// deliver runs the channel's built-in handler, then its subscribers in
// registration order.
func (h *Hub) deliver(ch Channel, n Notification) {
	switch ch {
	case ChannelConsole:
		h.console.write(n)
	case ChannelLog:
		h.logToSlog(n)
	}

	h.mu.Lock()
	entries := make([]subscriberEntry, len(h.subscribers[ch]))
	copy(entries, h.subscribers[ch])
	h.mu.Unlock()

	for _, e := range entries {
		h.callSubscriber(ch, e, n)
	}
}

// callSubscriber invokes one subscriber, converting a panic into a log line.
func (h *Hub) callSubscriber(ch Channel, e subscriberEntry, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("notification subscriber panicked",
				slog.String("channel", string(ch)),
				slog.Uint64("id", e.id),
				slog.Any("panic", r),
			)
		}
	}()

	e.fn(n)
}

// logToSlog is the built-in handler for the log channel.
func (h *Hub) logToSlog(n Notification) {
	attrs := []any{
		slog.String("token_state", n.TokenState),
	}
	for k, v := range n.Context {
		attrs = append(attrs, slog.String(k, v))
	}

	switch n.Severity {
	case SeverityError:
		h.logger.Error(n.Message, attrs...)
	case SeverityWarning:
		h.logger.Warn(n.Message, attrs...)
	default:
		h.logger.Info(n.Message, attrs...)
	}
}

// Recent returns the last n notifications, most recent last.
// Returns an empty slice when the history is empty or n is not positive.
func (h *Hub) Recent(n int) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n < 0 {
		n = 0
	}

	if n > len(h.history) {
		n = len(h.history)
	}

	out := make([]Notification, n)
	copy(out, h.history[len(h.history)-n:])

	return out
}

// ClearHistory drops all recorded notifications.
func (h *Hub) ClearHistory() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = nil
	h.logger.Debug("notification history cleared")
}
