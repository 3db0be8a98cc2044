// Package optimistic factors the optimistic-update pattern into one helper:
// snapshot the current value, show the tentative value, call the backend,
// restore the snapshot if the call fails, and adopt the backend's answer if it
// returns one.
//
//	err := optimistic.Apply(ctx, optimistic.Op[string]{
//	    Get:       func() string { return markers[id] },
//	    Set:       func(v string) { markers[id] = v },
//	    Tentative: lastMessageID,
//	    Remote: func(ctx context.Context) (*string, error) {
//	        return nil, tracker.Set(ctx, id, lastMessageID)
//	    },
//	})
package optimistic
