package core

import (
	"context"
	"encoding/json"
)

// BusMessage carries a relayed event between server instances.
type BusMessage struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	From    string          `json:"from"`
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bus fans relayed events out to other instances sharing the same rooms.
type Bus interface {
	Publish(ctx context.Context, msg BusMessage) error
	// Subscribe blocks until ctx is done, invoking fn for every message.
	Subscribe(ctx context.Context, fn func(BusMessage)) error
}
