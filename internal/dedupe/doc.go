// Package dedupe tracks recently seen message identifiers so the bridge
// processes each chat update once, even when a platform redelivers
// updates after a reconnect.
package dedupe
