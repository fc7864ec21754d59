// Package fortyfive implements the !45 minigame.
//
// Handlers take an Invocation and return the chat reply, where "" means the
// bot stays silent. Records are scoped to the channel's current epoch, which
// advances every time someone lands a perfect 45.000.
package fortyfive
