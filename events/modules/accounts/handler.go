package accounts

import (
	"encoding/json"
	"fmt"
)

// DecodeAccountEvent parses and checks a message value read from the topic
func DecodeAccountEvent(msg []byte) (AccountEvent, error) {
	var event AccountEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return AccountEvent{}, fmt.Errorf("failed to unmarshal AccountEvent: %w", err)
	}

	if event.EventType == "" || event.EventID == "" || event.Account.ID == "" {
		return AccountEvent{}, fmt.Errorf("invalid event: missing required fields")
	}
	if event.SchemaVersion != SchemaVersion {
		return AccountEvent{}, fmt.Errorf("unsupported schema version %q", event.SchemaVersion)
	}
	return event, nil
}
