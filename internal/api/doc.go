// Package api is the console's client for the shop REST backend.
//
// # Conventions
//
// Every request carries "Authorization: Bearer <token>" when a credential is
// set. Successful responses are wrapped in a {"data": ...} envelope which the
// client unwraps. Failures become *Error:
//
//   - transport failures: Status 0, Message "Network error"
//   - HTTP failures: the response status and the body's "message"
//
// Context cancellation is returned as the context's error, not as a network
// failure, so callers can drop the result silently.
//
// # Endpoints
//
//	POST /auth/login                               Login
//	GET  /auth/me                                  Me
//	GET  /chat/conversations                       ListConversations
//	GET  /chat/conversations/{id}/messages         ListMessages (limit, before)
//	GET  /orders/{id}                              GetOrder
package api
