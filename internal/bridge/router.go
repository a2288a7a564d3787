// ABOUTME: Message router - applies authorization policy and relays assistant replies.
// ABOUTME: Private chats gate on the sender; group chats gate on mention plus chat/user policy.

package bridge

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finchley/sibyl/internal/dedupe"
	"github.com/finchley/sibyl/internal/policy"
	"github.com/finchley/sibyl/internal/store"
)

// unauthorizedReply is the only designed user-facing error string.
const unauthorizedReply = "Unauthorized"

// unavailableReply is sent on turn failure when failure reporting is on.
const unavailableReply = "Assistant unavailable"

// Recorder persists completed turns. Implemented by store.SQLiteStore;
// nil disables recording.
type Recorder interface {
	RecordTurn(ctx context.Context, t *store.Turn) error
}

// Config tunes router behavior.
type Config struct {
	// ReportFailures, when true, posts a fixed "assistant unavailable"
	// reply on turn failure instead of staying silent.
	ReportFailures bool
}

// Router consumes normalized chat events and drives the assistant.
type Router struct {
	cfg      Config
	asker    Asker
	auth     policy.Authorizer
	recorder Recorder
	seen     *dedupe.Cache
	logger   *slog.Logger
}

// NewRouter creates a router. recorder may be nil.
func NewRouter(cfg Config, asker Asker, auth policy.Authorizer, recorder Recorder, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		asker:    asker,
		auth:     auth,
		recorder: recorder,
		seen:     dedupe.New(5*time.Minute, 1000),
		logger:   logger.With("component", "router"),
	}
}

// Close releases the router's dedupe cache.
func (r *Router) Close() {
	r.seen.Close()
}

// HandleMessage processes one inbound chat event. It blocks for up to
// the session deadline while a turn is in flight; frontends call it
// from per-update goroutines.
func (r *Router) HandleMessage(ctx context.Context, chat Chat, evt Event) {
	if strings.TrimSpace(evt.Text) == "" {
		return
	}

	// Platforms redeliver updates after reconnects; process each once.
	if evt.ID != "" && r.seen.CheckAndMark(evt.Frontend+"/"+evt.ID) {
		r.logger.Debug("dropping redelivered message", "frontend", evt.Frontend, "message_id", evt.ID)
		return
	}

	switch evt.Kind {
	case ChatPrivate:
		r.handlePrivate(ctx, chat, evt)
	case ChatGroup:
		r.handleGroup(ctx, chat, evt)
	}
}

// handlePrivate serves one-to-one conversations: authorized users only.
func (r *Router) handlePrivate(ctx context.Context, chat Chat, evt Event) {
	if !r.auth.UserAuthorized(evt.SenderID) {
		r.logger.Info("rejecting unauthorized user", "frontend", evt.Frontend, "sender", evt.SenderID)
		r.reply(ctx, chat, evt.ChatID, unauthorizedReply)
		return
	}
	r.ask(ctx, chat, evt, evt.Text)
}

// handleGroup serves multi-party conversations: mention-gated, and the
// chat or the sender must be allowed.
func (r *Router) handleGroup(ctx context.Context, chat Chat, evt Event) {
	mention := "@" + evt.BotHandle
	if !strings.HasPrefix(evt.Text, mention) {
		return
	}

	// Strip the mention token; ignore bare mentions.
	parts := strings.SplitN(evt.Text, " ", 2)
	if len(parts) < 2 {
		return
	}
	query := strings.TrimSpace(parts[1])
	if query == "" {
		return
	}

	if !r.auth.ChatAllowed(evt.ChatID) && !r.auth.UserAuthorized(evt.SenderID) {
		r.logger.Info("rejecting unauthorized group message",
			"frontend", evt.Frontend,
			"chat", evt.ChatID,
			"sender", evt.SenderID,
		)
		r.reply(ctx, chat, evt.ChatID, unauthorizedReply)
		r.maybeLeave(ctx, chat, evt.ChatID)
		return
	}

	r.ask(ctx, chat, evt, query)
}

// ask runs one turn and relays the reply, staying silent when the
// assistant returned none.
func (r *Router) ask(ctx context.Context, chat Chat, evt Event, query string) {
	start := time.Now()
	reply, ok, err := r.asker.Ask(ctx, query)
	r.record(evt, query, reply, ok, err, time.Since(start))

	if err != nil {
		r.logger.Error("turn failed",
			"frontend", evt.Frontend,
			"chat", evt.ChatID,
			"error", err,
		)
		if r.cfg.ReportFailures {
			r.reply(ctx, chat, evt.ChatID, unavailableReply)
		}
		return
	}
	if !ok {
		r.logger.Debug("turn produced no reply", "frontend", evt.Frontend, "chat", evt.ChatID)
		return
	}
	r.reply(ctx, chat, evt.ChatID, reply)
}

// maybeLeave leaves the chat when no authorized user remains a member.
func (r *Router) maybeLeave(ctx context.Context, chat Chat, chatID string) {
	for _, userID := range r.auth.AuthorizedUsers() {
		member, err := chat.IsMember(ctx, chatID, userID)
		if err != nil {
			r.logger.Debug("membership probe failed", "chat", chatID, "user", userID, "error", err)
			continue
		}
		if member {
			return
		}
	}

	r.logger.Info("leaving chat with no authorized members", "chat", chatID)
	if err := chat.LeaveChat(ctx, chatID); err != nil {
		r.logger.Error("failed to leave chat", "chat", chatID, "error", err)
	}
}

// reply posts text into the chat, logging but not propagating failures.
func (r *Router) reply(ctx context.Context, chat Chat, chatID, text string) {
	if err := chat.SendReply(ctx, chatID, text); err != nil {
		r.logger.Error("failed to send reply", "chat", chatID, "error", err)
	}
}

// record writes the turn to the transcript, if one is configured.
func (r *Router) record(evt Event, query, reply string, ok bool, turnErr error, elapsed time.Duration) {
	if r.recorder == nil {
		return
	}

	t := &store.Turn{
		ID:        uuid.New().String(),
		Frontend:  evt.Frontend,
		ChatID:    evt.ChatID,
		SenderID:  evt.SenderID,
		Query:     query,
		Reply:     reply,
		HasReply:  ok,
		Duration:  elapsed,
		CreatedAt: time.Now(),
	}
	if turnErr != nil {
		t.Error = turnErr.Error()
	}

	// Separate timeout context so recording survives caller cancellation.
	recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.recorder.RecordTurn(recCtx, t); err != nil {
		r.logger.Error("failed to record turn", "chat", evt.ChatID, "error", err)
	}
}
