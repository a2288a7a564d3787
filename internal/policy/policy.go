// ABOUTME: Authorization policy for inbound chat messages.
// ABOUTME: Static allow-lists of chat and user identifiers, injected into the router.

package policy

// Authorizer answers the two questions the router asks before serving a
// message. Implementations must be safe for concurrent use.
type Authorizer interface {
	// ChatAllowed reports whether the bot may serve queries in chatID.
	ChatAllowed(chatID string) bool
	// UserAuthorized reports whether senderID may query the assistant.
	UserAuthorized(senderID string) bool
	// AuthorizedUsers returns every authorized user identifier, used by
	// the router to probe whether any of them remains in a chat.
	AuthorizedUsers() []string
}

// StaticAuthorizer is an Authorizer over fixed allow-lists, typically
// built from configuration at startup. The zero value allows nothing.
type StaticAuthorizer struct {
	chats map[string]struct{}
	users map[string]struct{}
	order []string
}

// NewStaticAuthorizer builds an authorizer from allowed chat and
// authorized user identifier lists.
func NewStaticAuthorizer(chatIDs, userIDs []string) *StaticAuthorizer {
	a := &StaticAuthorizer{
		chats: make(map[string]struct{}, len(chatIDs)),
		users: make(map[string]struct{}, len(userIDs)),
	}
	for _, id := range chatIDs {
		a.chats[id] = struct{}{}
	}
	for _, id := range userIDs {
		if _, seen := a.users[id]; seen {
			continue
		}
		a.users[id] = struct{}{}
		a.order = append(a.order, id)
	}
	return a
}

// ChatAllowed reports whether chatID is in the allowed-chat set.
func (a *StaticAuthorizer) ChatAllowed(chatID string) bool {
	_, ok := a.chats[chatID]
	return ok
}

// UserAuthorized reports whether senderID is in the authorized-user set.
func (a *StaticAuthorizer) UserAuthorized(senderID string) bool {
	_, ok := a.users[senderID]
	return ok
}

// AuthorizedUsers returns the authorized user identifiers in the order
// they were configured.
func (a *StaticAuthorizer) AuthorizedUsers() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}
