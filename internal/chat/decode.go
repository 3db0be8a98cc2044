// ABOUTME: Lenient JSON decoding for chat payloads using gjson
// ABOUTME: Accepts id or _id, sender as id or object, timestamps as RFC3339 or epoch millis

package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Decoding errors
var (
	ErrInvalidPayload = errors.New("invalid chat payload")
	ErrMissingID      = errors.New("missing id")
)

// Known conversation keys; everything else lands in Extra.
var conversationKeys = map[string]bool{
	"id":           true,
	"_id":          true,
	"participants": true,
	"lastMessage":  true,
	"updatedAt":    true,
}

// ParseUpdate decodes a (possibly partial) conversation object. Fields absent
// from data stay absent in the result.
func ParseUpdate(data []byte) (Update, error) {
	if !gjson.ValidBytes(data) {
		return Update{}, fmt.Errorf("%w: malformed json", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Update{}, fmt.Errorf("%w: conversation must be an object", ErrInvalidPayload)
	}

	u := Update{ID: idOf(root)}
	if u.ID == "" {
		return Update{}, fmt.Errorf("%w: conversation", ErrMissingID)
	}

	if r := root.Get("participants"); r.Exists() {
		var participants []Participant
		for _, item := range r.Array() {
			var p Participant
			if err := p.UnmarshalJSON([]byte(item.Raw)); err != nil {
				return Update{}, fmt.Errorf("decoding participant: %w", err)
			}
			participants = append(participants, p)
		}
		u.Participants = Some(participants)
	}

	if r := root.Get("lastMessage"); r.Exists() {
		if r.Type == gjson.Null {
			u.LastMessage = Some[*LastMessage](nil)
		} else {
			var lm LastMessage
			if err := lm.UnmarshalJSON([]byte(r.Raw)); err != nil {
				return Update{}, fmt.Errorf("decoding lastMessage: %w", err)
			}
			u.LastMessage = Some(&lm)
		}
	}

	if r := root.Get("updatedAt"); r.Exists() {
		t, err := parseTime(r)
		if err != nil {
			return Update{}, fmt.Errorf("decoding updatedAt: %w", err)
		}
		u.UpdatedAt = Some(t)
	}

	root.ForEach(func(key, value gjson.Result) bool {
		if conversationKeys[key.String()] {
			return true
		}
		if u.Extra == nil {
			u.Extra = make(map[string]json.RawMessage)
		}
		u.Extra[key.String()] = json.RawMessage(value.Raw)
		return true
	})

	return u, nil
}

// MarshalJSON writes only the fields present in the update.
func (u Update) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4+len(u.Extra))
	for k, v := range u.Extra {
		out[k] = v
	}
	out["id"] = u.ID
	if u.Participants.Present {
		out["participants"] = u.Participants.Value
	}
	if u.LastMessage.Present {
		out["lastMessage"] = u.LastMessage.Value
	}
	if u.UpdatedAt.Present {
		out["updatedAt"] = u.UpdatedAt.Value
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a complete conversation snapshot.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	u, err := ParseUpdate(data)
	if err != nil {
		return err
	}
	*c = Merge(Conversation{}, u)
	return nil
}

// MarshalJSON writes the modelled fields plus any preserved Extra fields.
func (c Conversation) MarshalJSON() ([]byte, error) {
	type plain Conversation
	base, err := json.Marshal(plain(c))
	if err != nil || len(c.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes a participant profile.
func (p *Participant) UnmarshalJSON(data []byte) error {
	r, err := object(data, "participant")
	if err != nil {
		return err
	}
	*p = Participant{
		ID:     idOf(r),
		Name:   firstString(r, "name", "fullName", "displayName"),
		Avatar: r.Get("avatar").String(),
		Role:   r.Get("role").String(),
	}
	return nil
}

// UnmarshalJSON decodes an operator profile.
func (u *User) UnmarshalJSON(data []byte) error {
	r, err := object(data, "user")
	if err != nil {
		return err
	}
	*u = User{
		ID:    idOf(r),
		Name:  firstString(r, "name", "fullName", "displayName"),
		Email: r.Get("email").String(),
		Phone: r.Get("phone").String(),
		Role:  r.Get("role").String(),
	}
	return nil
}

// UnmarshalJSON decodes a conversation's last message summary.
func (l *LastMessage) UnmarshalJSON(data []byte) error {
	r, err := object(data, "lastMessage")
	if err != nil {
		return err
	}
	created, err := parseTime(r.Get("createdAt"))
	if err != nil {
		return fmt.Errorf("decoding createdAt: %w", err)
	}
	*l = LastMessage{
		ID:        idOf(r),
		Sender:    refID(r.Get("sender")),
		Content:   r.Get("content").String(),
		Images:    refs(r.Get("images")),
		CreatedAt: created,
	}
	return nil
}

// UnmarshalJSON decodes a thread message.
func (m *Message) UnmarshalJSON(data []byte) error {
	r, err := object(data, "message")
	if err != nil {
		return err
	}
	id := idOf(r)
	if id == "" {
		return fmt.Errorf("%w: message", ErrMissingID)
	}
	created, err := parseTime(r.Get("createdAt"))
	if err != nil {
		return fmt.Errorf("decoding createdAt: %w", err)
	}

	conv := r.Get("conversationId")
	if !conv.Exists() {
		conv = r.Get("conversation")
	}
	order := r.Get("orderId")
	if !order.Exists() {
		order = r.Get("order")
	}

	*m = Message{
		ID:             id,
		ConversationID: refID(conv),
		Sender:         refID(r.Get("sender")),
		Content:        r.Get("content").String(),
		Images:         refs(r.Get("images")),
		CreatedAt:      created,
		OrderID:        refID(order),
	}
	return nil
}

func object(data []byte, what string) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: malformed %s", ErrInvalidPayload, what)
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: %s must be an object", ErrInvalidPayload, what)
	}
	return r, nil
}

// idOf reads "id", falling back to the document-store style "_id".
func idOf(r gjson.Result) string {
	if v := r.Get("id"); v.Exists() && v.String() != "" {
		return v.String()
	}
	return r.Get("_id").String()
}

// refID reads a reference that is either a bare id or an embedded object.
func refID(r gjson.Result) string {
	if r.IsObject() {
		return idOf(r)
	}
	if r.Type == gjson.Null {
		return ""
	}
	return r.String()
}

// refs reads a list of image references given as strings or {url} objects.
func refs(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		var ref string
		if item.IsObject() {
			ref = firstString(item, "url", "src", "id", "_id")
		} else {
			ref = item.String()
		}
		if ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func parseTime(r gjson.Result) (time.Time, error) {
	switch r.Type {
	case gjson.Null:
		return time.Time{}, nil
	case gjson.Number:
		return time.UnixMilli(r.Int()).UTC(), nil
	case gjson.String:
		if r.String() == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, r.String())
	default:
		return time.Time{}, fmt.Errorf("%w: unexpected timestamp %s", ErrInvalidPayload, r.Raw)
	}
}
