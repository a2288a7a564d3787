// ABOUTME: Telegram frontend - long-polls updates and feeds them to the router.
// ABOUTME: Implements the bridge.Chat operations (reply, membership probe, leave).

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/finchley/sibyl/internal/bridge"
)

// Name identifies this frontend in events and transcripts.
const Name = "telegram"

// pollTimeout is the long-poll window for getUpdates, in seconds.
const pollTimeout = 60

// Frontend connects a Telegram bot account to the router.
type Frontend struct {
	bot    *tgbotapi.BotAPI
	router *bridge.Router
	logger *slog.Logger
}

// New logs in with the bot token and returns a ready frontend.
func New(botToken string, router *bridge.Router, logger *slog.Logger) (*Frontend, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Frontend{
		bot:    bot,
		router: router,
		logger: logger.With("component", "telegram"),
	}, nil
}

// Handle returns the bot's username, used as the group mention handle.
func (f *Frontend) Handle() string {
	return f.bot.Self.UserName
}

// Run polls for updates until the context is cancelled. Each update is
// handled on its own goroutine so one chat's in-flight turn doesn't
// stall delivery to others.
func (f *Frontend) Run(ctx context.Context) error {
	f.logger.Info("telegram frontend running", "username", f.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := f.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			f.bot.StopReceivingUpdates()
			f.logger.Info("telegram frontend stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			evt, ok := f.normalize(update)
			if !ok {
				continue
			}
			go f.router.HandleMessage(ctx, f, evt)
		}
	}
}

// normalize converts a Telegram update into a bridge event. Non-text
// updates and channel posts are dropped.
func (f *Frontend) normalize(update tgbotapi.Update) (bridge.Event, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return bridge.Event{}, false
	}

	var kind bridge.ChatKind
	switch {
	case msg.Chat.IsPrivate():
		kind = bridge.ChatPrivate
	case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup():
		kind = bridge.ChatGroup
	default:
		return bridge.Event{}, false
	}

	return bridge.Event{
		ID:        strconv.Itoa(msg.MessageID),
		Frontend:  Name,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		SenderID:  strconv.FormatInt(msg.From.ID, 10),
		Kind:      kind,
		Text:      msg.Text,
		BotHandle: f.bot.Self.UserName,
	}, true
}

// SendReply posts text into a chat.
func (f *Frontend) SendReply(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing chat id %q: %w", chatID, err)
	}
	if _, err := f.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

// IsMember reports whether userID is still a member of the chat.
func (f *Frontend) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	cid, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parsing chat id %q: %w", chatID, err)
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parsing user id %q: %w", userID, err)
	}

	member, err := f.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: cid,
			UserID: uid,
		},
	})
	if err != nil {
		return false, fmt.Errorf("getting chat member: %w", err)
	}
	return !member.HasLeft() && !member.WasKicked(), nil
}

// LeaveChat removes the bot from a chat.
func (f *Frontend) LeaveChat(ctx context.Context, chatID string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing chat id %q: %w", chatID, err)
	}
	if _, err := f.bot.Request(tgbotapi.LeaveChatConfig{ChatID: id}); err != nil {
		return fmt.Errorf("leaving chat: %w", err)
	}
	return nil
}
