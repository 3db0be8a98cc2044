// Package conversation implements the Conversation List Synchronizer.
//
// # Overview
//
// A List is loaded once from the backend and then kept current from
// "conversation" pushes:
//
//	list := conversation.New(apiClient, tracker, notifier, logger)
//	_ = list.Load(ctx)
//	list.Apply(update) // from a push
//	rows := list.Visible()
//
// # Merge
//
// Apply merges a partial update into the conversation with the same id
// (fields present in the update win, absent ones are kept) or inserts it at
// the head of the collection. See chat.Merge for field precedence.
//
// # Presentation
//
// Visible drops conversations without a last message and orders the rest by
// updatedAt, newest first. Each row carries a Status from DeriveStatus:
//
//   - responded: the operator sent the last message
//   - unread: the last message id differs from the read marker
//   - seen: otherwise
//
// # Selection
//
// Select sets the read marker to the conversation's last message id in
// memory first, then persists it through the read-state tracker, rolling the
// in-memory marker back if that write fails.
package conversation
