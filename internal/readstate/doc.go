// Package readstate tracks, per conversation, the last message the operator
// has seen. Markers live only on the operator's device; they are never sent
// to the backend, so two devices of the same operator disagree on what is
// unread.
package readstate
