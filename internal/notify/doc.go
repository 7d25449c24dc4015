// Package notify delivers device change notifications.
//
// The Notifier interface has Telegram (default), Twitter, and dry-run
// implementations. Delivery failures are logged per message and never stop
// the remaining messages or the run; an empty change sequence sends nothing.
package notify
