package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

// Context carries one inbound message through the middleware chain.
type Context struct {
	Ctx     context.Context
	Message domain.InboundMessage
	Key     domain.SessionKey
}

// Handler produces the reply for a message. An empty reply with a nil
// error means the message was handled silently.
type Handler func(mc *Context) (string, error)

// Middleware wraps a handler. Returning without calling next
// short-circuits the chain.
type Middleware func(mc *Context, next Handler) (string, error)

// Chain composes middleware around a final handler in registration
// order: the first middleware added sees the message first.
func Chain(mws []Middleware, final Handler) Handler {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		next := h
		h = func(mc *Context) (string, error) {
			return mw(mc, next)
		}
	}
	return h
}

// rateWindow is a fixed-window counter for one sender.
type rateWindow struct {
	start atomic.Int64 // unix nanos of window start
	count atomic.Int64
}

// RateLimit blocks senders that exceed maxCalls within the window,
// replying with a backoff notice instead of invoking the agent.
func RateLimit(maxCalls int, window time.Duration, log *logging.Logger) Middleware {
	if maxCalls <= 0 {
		maxCalls = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	mlog := log.Sub("ratelimit")
	var windows sync.Map // sender id → *rateWindow

	return func(mc *Context, next Handler) (string, error) {
		v, _ := windows.LoadOrStore(mc.Message.From, &rateWindow{})
		w := v.(*rateWindow)

		now := time.Now().UnixNano()
		start := w.start.Load()
		if now-start >= int64(window) {
			if w.start.CompareAndSwap(start, now) {
				w.count.Store(0)
			}
		}
		if w.count.Add(1) > int64(maxCalls) {
			mlog.Warn().Str("sender", mc.Message.From).Int("max", maxCalls).
				Msg("rate limit exceeded")
			return "Rate limit exceeded. Please wait a moment.", nil
		}
		return next(mc)
	}
}

// AllowSenders drops messages from senders outside the allowlist. An
// empty list allows everyone.
func AllowSenders(senderIDs []string, log *logging.Logger) Middleware {
	allowed := make(map[string]struct{}, len(senderIDs))
	for _, id := range senderIDs {
		allowed[id] = struct{}{}
	}
	mlog := log.Sub("allowlist")

	return func(mc *Context, next Handler) (string, error) {
		if len(allowed) == 0 {
			return next(mc)
		}
		if _, ok := allowed[mc.Message.From]; !ok {
			mlog.Debug().Str("sender", mc.Message.From).Msg("sender not allowed")
			return "", nil
		}
		return next(mc)
	}
}

// LogMessages logs every inbound message and its reply.
func LogMessages(log *logging.Logger) Middleware {
	mlog := log.Sub("messages")

	return func(mc *Context, next Handler) (string, error) {
		mlog.Info().
			Str("channel", mc.Message.ChannelID).
			Str("chat", mc.Message.ChatID).
			Str("sender", mc.Message.From).
			Str("body", truncate(mc.Message.Body, 100)).
			Msg("inbound message")
		reply, err := next(mc)
		if err != nil {
			mlog.Warn().Err(err).Msg("message handling failed")
			return reply, err
		}
		mlog.Info().Str("reply", truncate(reply, 100)).Msg("outbound reply")
		return reply, nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
