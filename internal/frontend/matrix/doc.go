// Package matrix adapts Matrix room messages to the bridge's
// platform-neutral event interface via the mautrix sync loop.
package matrix
