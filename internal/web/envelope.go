package web

// Envelope op codes. Every messenger operation against a conversation maps
// to exactly one envelope; hello is sent once per connection, before the
// transcript replay, with the conversation id in the id field.
const (
	opCreate = "create"
	opUpdate = "update"
	opRemove = "remove"
	opHello  = "hello"
)

// envelope is the frame pushed to WebSocket clients.
type envelope struct {
	Op      string `json:"op"`
	ID      string `json:"id"`
	Content string `json:"content,omitempty"`
	Author  string `json:"author,omitempty"`
}
