package transfer

import (
	"context"
	"fmt"

	"transcript-advisor/internal/analyses"
)

// SlotKey addresses the single analysis result held per browsing session.
const SlotKey = "analysisResults"

// Channel hands one envelope from the uploading view to the results view of the same
// browsing session. The last Put wins; Take does not consume the value.
type Channel struct {
	store SlotStore
	scope string
}

// NewChannel binds a channel to one browsing-session scope.
func NewChannel(store SlotStore, scope string) *Channel {
	return &Channel{store: store, scope: scope}
}

// Put serializes env into the slot, replacing any previous value.
func (c *Channel) Put(ctx context.Context, env analyses.Envelope) error {
	data, err := analyses.EncodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := c.store.Set(ctx, c.scope, SlotKey, data); err != nil {
		return fmt.Errorf("write transfer slot: %w", err)
	}
	return nil
}

// Take returns the current slot value. ok is false when nothing was handed off,
// which is an expected condition rather than an error.
func (c *Channel) Take(ctx context.Context) (env analyses.Envelope, ok bool, err error) {
	data, found, err := c.store.Get(ctx, c.scope, SlotKey)
	if err != nil {
		return analyses.Envelope{}, false, fmt.Errorf("read transfer slot: %w", err)
	}
	if !found {
		return analyses.Envelope{}, false, nil
	}
	env, err = analyses.DecodeEnvelope(data)
	if err != nil {
		return analyses.Envelope{}, false, err
	}
	return env, true, nil
}

// Clear empties the slot, used when the browsing session ends.
func (c *Channel) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, c.scope, SlotKey)
}
