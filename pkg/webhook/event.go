package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventTypeCastCreated is the only event type the bot subscribes to.
const EventTypeCastCreated = "cast.created"

// envelope is the outer shape of a Neynar webhook delivery.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CastEvent is a decoded cast.created delivery.
type CastEvent struct {
	Hash       string    `json:"hash"`
	ParentHash string    `json:"parent_hash"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Author     Author    `json:"author"`
}

// Author identifies the cast author.
type Author struct {
	FID      int64  `json:"fid"`
	Username string `json:"username"`
}

// IsReply reports whether the cast replies to another cast. Tips are only
// valid as replies; the parent cast's author is the recipient.
func (e *CastEvent) IsReply() bool {
	return e.ParentHash != ""
}

// DecodeCastEvent parses a webhook body. Non-cast event types return
// (nil, nil) so the handler can acknowledge and ignore them.
func DecodeCastEvent(body []byte) (*CastEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode webhook envelope: %w", err)
	}
	if env.Type != EventTypeCastCreated {
		return nil, nil
	}

	var event CastEvent
	if err := json.Unmarshal(env.Data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode cast event: %w", err)
	}
	if event.Hash == "" {
		return nil, fmt.Errorf("cast event missing hash")
	}
	return &event, nil
}
