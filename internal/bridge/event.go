// ABOUTME: Platform-neutral inbound chat event and the collaborator interfaces the router needs.
// ABOUTME: Frontends normalize their native updates into Event before routing.

package bridge

import "context"

// ChatKind distinguishes one-to-one conversations from multi-party ones.
type ChatKind int

const (
	// ChatPrivate is a one-to-one conversation with the bot.
	ChatPrivate ChatKind = iota
	// ChatGroup is a multi-party conversation.
	ChatGroup
)

// Event is one inbound chat message, normalized across frontends.
type Event struct {
	// ID uniquely identifies the message within its frontend, used for
	// redelivery deduplication. May be empty if the platform does not
	// redeliver.
	ID string

	// Frontend names the originating platform ("telegram", "matrix").
	Frontend string

	ChatID   string
	SenderID string
	Kind     ChatKind
	Text     string

	// BotHandle is the bot's own mention handle on this frontend,
	// without the leading @. Group messages must open with the mention
	// to be served.
	BotHandle string
}

// Asker is the synchronous ask/answer contract the assistant session
// exposes. ok is false when the turn completed without a reply.
type Asker interface {
	Ask(ctx context.Context, queryText string) (reply string, ok bool, err error)
}

// Chat is what the router needs from a frontend to act on a chat:
// replying, probing membership, and leaving.
type Chat interface {
	// SendReply posts text into the chat. Fire-and-forget from the
	// router's perspective.
	SendReply(ctx context.Context, chatID, text string) error
	// IsMember reports whether userID is currently a member of chatID.
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
	// LeaveChat removes the bot from chatID.
	LeaveChat(ctx context.Context, chatID string) error
}
