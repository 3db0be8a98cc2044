// Package chat defines the support chat data model: conversations, messages,
// partial conversation updates, and the outbound payloads the console emits.
//
// Decoding is lenient about the backend's document-store conventions
// ("_id" next to "id", senders embedded as objects, epoch-millisecond
// timestamps) and keeps unknown conversation fields so that Merge never drops
// data added by newer API versions.
package chat
