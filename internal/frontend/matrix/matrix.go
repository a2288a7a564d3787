// ABOUTME: Matrix frontend - sync loop feeding room messages to the router.
// ABOUTME: Implements the bridge.Chat operations via the mautrix client.

package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/finchley/sibyl/internal/bridge"
)

// Name identifies this frontend in events and transcripts.
const Name = "matrix"

// apiTimeout bounds Matrix API calls made outside the sync loop.
const apiTimeout = 10 * time.Second

// Frontend connects a Matrix bot account to the router.
type Frontend struct {
	client *mautrix.Client
	userID id.UserID
	router *bridge.Router
	logger *slog.Logger
}

// New creates a Matrix frontend for an already-provisioned account.
func New(homeserver, userID, accessToken string, router *bridge.Router, logger *slog.Logger) (*Frontend, error) {
	client, err := mautrix.NewClient(homeserver, id.UserID(userID), accessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Frontend{
		client: client,
		userID: id.UserID(userID),
		router: router,
		logger: logger.With("component", "matrix"),
	}, nil
}

// Handle returns the localpart of the bot's user ID, used as the group
// mention handle.
func (f *Frontend) Handle() string {
	return localpart(f.userID)
}

// localpart extracts "sibyl" from "@sibyl:example.org".
func localpart(userID id.UserID) string {
	s := strings.TrimPrefix(userID.String(), "@")
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// Run starts the sync loop and blocks until the context is cancelled.
func (f *Frontend) Run(ctx context.Context) error {
	syncer, ok := f.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", f.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, func(hctx context.Context, evt *event.Event) {
		f.handleMessageEvent(ctx, evt)
	})

	f.logger.Info("matrix frontend running", "user_id", f.userID.String())

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- f.client.SyncWithContext(ctx)
	}()

	select {
	case <-ctx.Done():
		f.logger.Info("matrix frontend stopped")
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent normalizes one room message and routes it.
func (f *Frontend) handleMessageEvent(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == f.userID {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}

	kind := f.chatKind(ctx, evt.RoomID)

	e := bridge.Event{
		ID:        evt.ID.String(),
		Frontend:  Name,
		ChatID:    evt.RoomID.String(),
		SenderID:  evt.Sender.String(),
		Kind:      kind,
		Text:      content.Body,
		BotHandle: localpart(f.userID),
	}

	// Handle on a separate goroutine so an in-flight turn doesn't
	// block the sync loop.
	go f.router.HandleMessage(ctx, f, e)
}

// chatKind treats two-member rooms as one-to-one conversations and
// everything else (including rooms we can't inspect) as groups.
func (f *Frontend) chatKind(ctx context.Context, roomID id.RoomID) bridge.ChatKind {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	resp, err := f.client.JoinedMembers(ctx, roomID)
	if err != nil {
		f.logger.Debug("joined members lookup failed", "room", roomID.String(), "error", err)
		return bridge.ChatGroup
	}
	if len(resp.Joined) <= 2 {
		return bridge.ChatPrivate
	}
	return bridge.ChatGroup
}

// SendReply posts text into a room.
func (f *Frontend) SendReply(ctx context.Context, chatID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	if _, err := f.client.SendText(ctx, id.RoomID(chatID), text); err != nil {
		return fmt.Errorf("sending matrix message: %w", err)
	}
	return nil
}

// IsMember reports whether userID is currently joined to the room.
func (f *Frontend) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	resp, err := f.client.JoinedMembers(ctx, id.RoomID(chatID))
	if err != nil {
		return false, fmt.Errorf("getting joined members: %w", err)
	}
	_, joined := resp.Joined[id.UserID(userID)]
	return joined, nil
}

// LeaveChat removes the bot from a room.
func (f *Frontend) LeaveChat(ctx context.Context, chatID string) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	if _, err := f.client.LeaveRoom(ctx, id.RoomID(chatID)); err != nil {
		return fmt.Errorf("leaving room: %w", err)
	}
	return nil
}
