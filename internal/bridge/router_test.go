// ABOUTME: Tests for the message router's authorization and relay policy.
// ABOUTME: Covers private/group gating, mention stripping, leave-chat, and failure reporting.

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchley/sibyl/internal/policy"
	"github.com/finchley/sibyl/internal/store"
)

// mockAsker implements Asker with a fixed outcome.
type mockAsker struct {
	mu      sync.Mutex
	reply   string
	ok      bool
	err     error
	queries []string
}

func (m *mockAsker) Ask(ctx context.Context, queryText string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, queryText)
	return m.reply, m.ok, m.err
}

// mockChat records replies and leave calls; membership is a fixed map.
type mockChat struct {
	mu        sync.Mutex
	replies   []string
	left      []string
	members   map[string]bool // userID -> member
	memberErr error
}

func (m *mockChat) SendReply(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	return nil
}

func (m *mockChat) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	if m.memberErr != nil {
		return false, m.memberErr
	}
	return m.members[userID], nil
}

func (m *mockChat) LeaveChat(ctx context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, chatID)
	return nil
}

// mockRecorder captures recorded turns.
type mockRecorder struct {
	mu    sync.Mutex
	turns []*store.Turn
}

func (m *mockRecorder) RecordTurn(ctx context.Context, t *store.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	return nil
}

func newTestRouter(cfg Config, asker Asker, auth policy.Authorizer, rec Recorder) *Router {
	r := NewRouter(cfg, asker, auth, rec, nil)
	return r
}

func privateEvent(sender, text string) Event {
	return Event{
		Frontend:  "test",
		ChatID:    "chat-1",
		SenderID:  sender,
		Kind:      ChatPrivate,
		Text:      text,
		BotHandle: "sibyl",
	}
}

func groupEvent(chat, sender, text string) Event {
	return Event{
		Frontend:  "test",
		ChatID:    chat,
		SenderID:  sender,
		Kind:      ChatGroup,
		Text:      text,
		BotHandle: "sibyl",
	}
}

func TestRouter_Private_UnauthorizedUserRejected(t *testing.T) {
	asker := &mockAsker{reply: "hi", ok: true}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("99", "hello"))

	assert.Equal(t, []string{"Unauthorized"}, chat.replies)
	assert.Empty(t, asker.queries, "Ask must not be invoked for unauthorized users")
}

func TestRouter_Private_AuthorizedUserServed(t *testing.T) {
	asker := &mockAsker{reply: "It's 3pm", ok: true}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("42", "what time is it"))

	assert.Equal(t, []string{"what time is it"}, asker.queries)
	assert.Equal(t, []string{"It's 3pm"}, chat.replies)
}

func TestRouter_Private_NoReplyStaysSilent(t *testing.T) {
	asker := &mockAsker{ok: false}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("42", "noop"))

	assert.Len(t, asker.queries, 1)
	assert.Empty(t, chat.replies)
}

func TestRouter_Group_IgnoresMessagesWithoutMention(t *testing.T) {
	asker := &mockAsker{reply: "x", ok: true}
	auth := policy.NewStaticAuthorizer([]string{"g1"}, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, groupEvent("g1", "42", "just chatting"))

	assert.Empty(t, asker.queries)
	assert.Empty(t, chat.replies)
}

func TestRouter_Group_IgnoresBareMention(t *testing.T) {
	asker := &mockAsker{reply: "x", ok: true}
	auth := policy.NewStaticAuthorizer([]string{"g1"}, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, groupEvent("g1", "42", "@sibyl"))
	r.HandleMessage(context.Background(), chat, groupEvent("g1", "42", "@sibyl   "))

	assert.Empty(t, asker.queries)
}

func TestRouter_Group_StripsMentionBeforeAsking(t *testing.T) {
	asker := &mockAsker{reply: "done", ok: true}
	auth := policy.NewStaticAuthorizer([]string{"g1"}, nil)
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, groupEvent("g1", "7", "@sibyl turn on the lights"))

	assert.Equal(t, []string{"turn on the lights"}, asker.queries)
	assert.Equal(t, []string{"done"}, chat.replies)
}

func TestRouter_Group_AuthorizedUserInUnlistedChatServed(t *testing.T) {
	asker := &mockAsker{reply: "ok", ok: true}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, groupEvent("unlisted", "42", "@sibyl hello"))

	assert.Equal(t, []string{"hello"}, asker.queries)
	assert.Equal(t, []string{"ok"}, chat.replies)
}

func TestRouter_Group_UnauthorizedWithAuthorizedMemberStays(t *testing.T) {
	asker := &mockAsker{reply: "x", ok: true}
	auth := policy.NewStaticAuthorizer([]string{"g1"}, []string{"42"})
	chat := &mockChat{members: map[string]bool{"42": true}}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, groupEvent("rogue", "99", "@sibyl hello"))

	assert.Equal(t, []string{"Unauthorized"}, chat.replies)
	assert.Empty(t, chat.left, "must not leave while an authorized user is a member")
	assert.Empty(t, asker.queries)
}

func TestRouter_Group_UnauthorizedWithNoAuthorizedMemberLeaves(t *testing.T) {
	asker := &mockAsker{reply: "x", ok: true}
	auth := policy.NewStaticAuthorizer([]string{"g1"}, []string{"42"})
	chat := &mockChat{members: map[string]bool{}}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, groupEvent("rogue", "99", "@sibyl hello"))

	assert.Equal(t, []string{"Unauthorized"}, chat.replies)
	assert.Equal(t, []string{"rogue"}, chat.left)
}

func TestRouter_Group_MembershipProbeErrorCountsAsAbsent(t *testing.T) {
	asker := &mockAsker{}
	auth := policy.NewStaticAuthorizer([]string{"g1"}, []string{"42"})
	chat := &mockChat{memberErr: errors.New("user not found")}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, groupEvent("rogue", "99", "@sibyl hello"))

	assert.Equal(t, []string{"rogue"}, chat.left)
}

func TestRouter_TurnFailureSilentByDefault(t *testing.T) {
	asker := &mockAsker{err: errors.New("transport down")}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("42", "hello"))

	assert.Empty(t, chat.replies)
}

func TestRouter_TurnFailureReportedWhenConfigured(t *testing.T) {
	asker := &mockAsker{err: errors.New("transport down")}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{ReportFailures: true}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("42", "hello"))

	assert.Equal(t, []string{"Assistant unavailable"}, chat.replies)
}

func TestRouter_DropsRedeliveredMessages(t *testing.T) {
	asker := &mockAsker{reply: "once", ok: true}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	evt := privateEvent("42", "hello")
	evt.ID = "msg-1"
	r.HandleMessage(context.Background(), chat, evt)
	r.HandleMessage(context.Background(), chat, evt)

	assert.Len(t, asker.queries, 1)
	assert.Len(t, chat.replies, 1)
}

func TestRouter_IgnoresBlankMessages(t *testing.T) {
	asker := &mockAsker{}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	r := newTestRouter(Config{}, asker, auth, nil)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("42", "   "))

	assert.Empty(t, asker.queries)
}

func TestRouter_RecordsCompletedTurns(t *testing.T) {
	asker := &mockAsker{reply: "answer", ok: true}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	rec := &mockRecorder{}
	r := newTestRouter(Config{}, asker, auth, rec)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("42", "hello"))

	require.Len(t, rec.turns, 1)
	turn := rec.turns[0]
	assert.Equal(t, "test", turn.Frontend)
	assert.Equal(t, "chat-1", turn.ChatID)
	assert.Equal(t, "42", turn.SenderID)
	assert.Equal(t, "hello", turn.Query)
	assert.Equal(t, "answer", turn.Reply)
	assert.True(t, turn.HasReply)
	assert.Empty(t, turn.Error)
	assert.NotEmpty(t, turn.ID)
}

func TestRouter_RecordsFailedTurns(t *testing.T) {
	asker := &mockAsker{err: errors.New("deadline exceeded")}
	auth := policy.NewStaticAuthorizer(nil, []string{"42"})
	chat := &mockChat{}
	rec := &mockRecorder{}
	r := newTestRouter(Config{}, asker, auth, rec)
	defer r.Close()

	r.HandleMessage(context.Background(), chat, privateEvent("42", "hello"))

	require.Len(t, rec.turns, 1)
	assert.Contains(t, rec.turns[0].Error, "deadline exceeded")
	assert.False(t, rec.turns[0].HasReply)
}
