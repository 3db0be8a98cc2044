// Package console is the support chat's application state container.
//
// # Overview
//
// A Console is created once per process and passed explicitly to whatever
// drives it (the terminal UI, tests). It owns:
//
//   - the Connection Manager (channel.Manager) and the current Channel
//   - the Conversation List Synchronizer (conversation.List)
//   - the open conversation's Message Thread Loader (thread.Loader)
//   - the Composer
//
// # Session
//
//	c := console.New(apiClient, channels, tracker, tokenFile, opts)
//	err := c.Start(ctx, token) // or c.Login(ctx, "ops@petshop.test", password)
//	up, err := c.Open(ctx, conversationID)
//	_, err = c.SendText(ctx, "Your parcel left the warehouse today")
//	c.Logout()
//
// Start resolves the operator and loads the list concurrently, then opens
// the channel. On every connect the console subscribes to conversation
// previews and re-joins the open room, so reconnects need no operator
// action.
//
// # Errors
//
// Failures end at the console: load and send errors go to the Notifier as
// transient notices, channel trouble is logged. Nothing is fatal; a retry
// recovers.
//
// # Changes
//
// Changes() delivers a Change whenever the list, the open thread or the
// connection state moved. Readers that fall behind lose Changes, never
// state.
package console
