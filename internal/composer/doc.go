// Package composer buffers the operator's outgoing message and sends it as a
// single send_message event ({conversationId, content, images}).
//
// Submit is fire-and-forget: the draft is cleared as soon as the frame is
// queued on the channel. Delivery and redelivery belong to the messaging
// server.
package composer
