// Package bridge routes inbound chat messages to the assistant session
// and relays replies back to the chat.
//
// # Router
//
// The Router is policy glue over the assistant core. For each inbound
// event it applies the authorization policy, extracts the query text
// (stripping the bot mention in group chats), calls Ask, and sends the
// reply back through the originating frontend.
//
// Frontends normalize their platform events into bridge.Event and hand
// them to Router.HandleMessage; everything platform-specific (polling,
// sync loops, reconnection) stays in the frontend packages.
package bridge
