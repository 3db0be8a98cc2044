// Package channel is the console's realtime connection to the messaging
// server.
//
// # Overview
//
// A Manager owns at most one Channel, bound to the current credential.
// Changing the credential closes the old Channel before opening a new one;
// an empty credential leaves no Channel open.
//
// A Channel dials <url>/<namespace>?token=<credential> over WebSocket and
// reconnects with exponential backoff until closed. Dependents must tolerate
// connect, disconnect and reconnect at any time:
//
//	ch := mgr.SetCredential(token)
//	msgs, _ := ch.Subscribe(ctx, channel.EventMessage)
//	_ = ch.Emit(ctx, channel.EventJoinConversation, chat.JoinPayload{ConversationID: id})
//
// # Frames
//
// Every frame is {"event": name, "data": payload}. Consumed: conversation,
// message, unauthorized. Emitted: join_conversation, send_message,
// admin_join_preview. Lifecycle events (connect, disconnect, error,
// unauthorized) are published locally and logged; none of them closes the
// Channel.
//
// # Delivery
//
// Emit never blocks: frames are queued (64) and flushed when connected.
// Subscribers get buffered channels (64); a subscriber that falls behind
// loses events rather than stalling the read loop. Message pushes repeated
// within the dedupe TTL (typically after a reconnect) are dropped before
// fan-out.
package channel
