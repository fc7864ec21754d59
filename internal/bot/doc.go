// Package bot turns verified chat messages into at most one chat reply.
//
// The Dispatcher detaches each message from the webhook request, the Router
// applies eligibility and permission rules, and the parsed Command is run
// against the !45 game.
package bot
