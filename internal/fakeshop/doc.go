// Package fakeshop is an in-memory stand-in for the pet-shop backend.
//
// # Overview
//
// It serves the REST endpoints the support console consumes (login,
// current user, conversations, message pages, orders) and the realtime
// namespace over WebSocket:
//
//	shop, _ := fakeshop.New(fakeshop.Options{Secret: secret})
//	_ = fakeshop.Seed(shop, 30)
//	srv := httptest.NewServer(shop.Handler())
//
// Payloads deliberately look like a document-store backend: "_id" keys,
// embedded sender objects, image objects, and a {"success","data"}
// envelope. Conversation snapshots carry a "channel" field the console does
// not model.
//
// # Realtime
//
// Sockets authenticate with the token query parameter (401 otherwise).
// join_conversation subscribes to a room's message pushes;
// admin_join_preview subscribes to every conversation update;
// send_message posts a message as the socket's user.
//
// # Test hooks
//
// DropConnections closes every socket abruptly, Repush re-delivers a stored
// message, and Joined reports room membership.
package fakeshop
