// ABOUTME: Typed shallow merge of partial conversation updates
// ABOUTME: Present fields replace wholesale, absent fields are kept, unknown fields merge key by key

package chat

import "encoding/json"

// Merge applies u on top of existing and returns the result; existing is not
// modified. Field precedence:
//
//   - Participants, LastMessage, UpdatedAt: replaced as a whole when present
//     in u (a present null LastMessage clears it), kept otherwise.
//   - Extra: merged key by key, u wins on conflicts.
//   - ID: taken from existing when set, else from u.
func Merge(existing Conversation, u Update) Conversation {
	out := existing
	if out.ID == "" {
		out.ID = u.ID
	}

	if u.Participants.Present {
		out.Participants = append([]Participant(nil), u.Participants.Value...)
	}
	if u.LastMessage.Present {
		if u.LastMessage.Value == nil {
			out.LastMessage = nil
		} else {
			lm := *u.LastMessage.Value
			lm.Images = append([]string(nil), lm.Images...)
			out.LastMessage = &lm
		}
	}
	if u.UpdatedAt.Present {
		out.UpdatedAt = u.UpdatedAt.Value
	}

	if len(existing.Extra) > 0 || len(u.Extra) > 0 {
		extra := make(map[string]json.RawMessage, len(existing.Extra)+len(u.Extra))
		for k, v := range existing.Extra {
			extra[k] = v
		}
		for k, v := range u.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}

	return out
}
