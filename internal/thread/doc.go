// Package thread implements the Message Thread Loader: the ordered,
// deduplicated message log of one open conversation.
//
// # States
//
//	Idle → Loading → Ready ⇄ LoadingMore
//	any  → Closed
//
// Load is valid from Idle, LoadOlder from Ready. A failed Load returns to
// Idle and a failed LoadOlder to Ready. Receive is accepted in every state
// except Closed and never changes the state.
//
// # Ordering
//
// The server returns pages newest first. The loader sorts every batch before
// merging, so the log is always ascending by creation time (then id).
// Well-behaved input takes the prepend or append fast path; out-of-order
// input is merged into place. Message ids are a set: replaying a page or a
// push adds nothing.
//
// # Scrolling
//
// Each operation returns an Update whose Hint tells the view what to do:
// ScrollToNewest after the initial load and after live appends,
// PreserveAnchor (with the previous oldest fetched id) after loading older
// history. The paging cursor only moves on fetched pages, never on live
// messages.
package thread
