// Package chat runs the query lifecycle: it binds the chat view model, the session store and the
// Nova-Bot API client.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nova-bot/internal/chatclient"
	"nova-bot/internal/chatview"
	"nova-bot/internal/session"
)

const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is the failure of a request that outlived the configured timeout.
	ErrTimeout = errors.New("chat: request timed out")
	// ErrCancelled is the failure of a request cancelled by a newer submission or by the caller.
	ErrCancelled = errors.New("chat: request cancelled")
)

// Querier sends one query to the backend.
type Querier interface {
	Query(ctx context.Context, in chatclient.QueryRequest) (chatclient.QueryResponse, error)
}

// Conversation drives one chat screen.
//
// Begin, Finish, NewChat and Close mutate the view model and must be called from the goroutine
// that owns it. Request.Do may run anywhere.
type Conversation struct {
	view    *chatview.Model
	store   session.Store
	api     Querier
	timeout time.Duration
	logger  *slog.Logger

	inflight *Request
}

type Option func(*Conversation)

// WithTimeout bounds each request. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Conversation) {
		c.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithView starts the conversation from an existing view model.
func WithView(view *chatview.Model) Option {
	return func(c *Conversation) {
		if view != nil {
			c.view = view
		}
	}
}

func NewConversation(store session.Store, api Querier, opts ...Option) (*Conversation, error) {
	if store == nil {
		return nil, errors.New("chat: session store must not be nil")
	}
	if api == nil {
		return nil, errors.New("chat: api client must not be nil")
	}
	c := &Conversation{
		view:    chatview.New(),
		store:   store,
		api:     api,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// View exposes the view model for rendering and input events.
func (c *Conversation) View() *chatview.Model {
	return c.view
}

// Request is one submitted query. Its cancel func is the handle for abandoning it.
type Request struct {
	Token chatview.Token
	Query string

	ctx     context.Context
	cancel  context.CancelFunc
	store   session.Store
	api     Querier
	timeout time.Duration
}

// Cancel abandons the request. Safe to call more than once.
func (r *Request) Cancel() {
	r.cancel()
}

// Begin submits the current draft. It returns false, and changes nothing, for a blank draft.
// A request still in flight is cancelled; its outcome would be stale anyway.
func (c *Conversation) Begin(ctx context.Context) (*Request, bool) {
	token, query, ok := c.view.Submit()
	if !ok {
		return nil, false
	}
	if c.inflight != nil {
		c.inflight.Cancel()
	}

	rctx, cancel := context.WithCancel(ctx)
	req := &Request{
		Token:   token,
		Query:   query,
		ctx:     rctx,
		cancel:  cancel,
		store:   c.store,
		api:     c.api,
		timeout: c.timeout,
	}
	c.inflight = req
	return req, true
}

// Do performs the HTTP round trip. Identity is read from the store at call time.
func (r *Request) Do() chatview.Outcome {
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, r.timeout, ErrTimeout)
		defer cancel()
	}

	sess, err := r.store.Read(ctx)
	if err != nil {
		return chatview.Outcome{Err: fmt.Errorf("chat: read session: %w", err)}
	}

	res, err := r.api.Query(ctx, chatclient.NewQueryRequest(sess.UserID, sess.Email, r.Query, sess.ChatID))
	if err != nil {
		return chatview.Outcome{Err: classify(ctx, err)}
	}
	return chatview.Outcome{
		Answer:    res.Answer,
		Followups: res.Followups,
		ChatID:    res.ChatID,
	}
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if errors.Is(context.Cause(ctx), ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}

// Finish applies the outcome of req. It reports whether the outcome was applied; outcomes of
// superseded requests are dropped. The returned error covers only the session write.
func (c *Conversation) Finish(ctx context.Context, req *Request, out chatview.Outcome) (bool, error) {
	req.Cancel()
	if c.inflight == req {
		c.inflight = nil
	}

	applied := c.view.Resolve(req.Token, out)
	if !applied {
		c.logger.Debug("discarding stale chat response", "token", req.Token, "latest", c.view.Generation())
		return false, nil
	}
	if out.Failed() {
		attrs := []any{"error", out.Err, "token", req.Token}
		if code, ok := chatclient.StatusCode(out.Err); ok {
			attrs = append(attrs, "status", code)
		}
		c.logger.Warn("chat query failed", attrs...)
		return true, nil
	}
	if out.ChatID != "" {
		if err := c.store.RecordChatID(ctx, out.ChatID); err != nil {
			c.logger.Error("failed to record chat id", "error", err, "chat_id", out.ChatID)
			return true, fmt.Errorf("chat: record chat id: %w", err)
		}
	}
	return true, nil
}

// Send runs Begin, Do and Finish synchronously. ok is false when the draft was blank.
func (c *Conversation) Send(ctx context.Context) (out chatview.Outcome, ok bool, err error) {
	req, ok := c.Begin(ctx)
	if !ok {
		return chatview.Outcome{}, false, nil
	}
	out = req.Do()
	_, err = c.Finish(ctx, req, out)
	return out, true, err
}

// Ask sets the draft to query and sends it.
func (c *Conversation) Ask(ctx context.Context, query string) (chatview.Outcome, bool, error) {
	c.view.SetDraft(query)
	return c.Send(ctx)
}

// NewChat clears the transcript and forgets the backend chat id, so the next query opens a new
// backend conversation.
func (c *Conversation) NewChat(ctx context.Context) error {
	if c.inflight != nil {
		c.inflight.Cancel()
		c.inflight = nil
	}
	c.view.NewChat()
	if err := c.store.ForgetChatID(ctx); err != nil {
		return fmt.Errorf("chat: forget chat id: %w", err)
	}
	return nil
}

// Close cancels any request in flight.
func (c *Conversation) Close() {
	if c.inflight != nil {
		c.inflight.Cancel()
		c.inflight = nil
	}
}
