package domain

import (
	"encoding/json"
	"time"
)

// AuditRecord is one entry of the append-only audit trail. Old and new values
// are stored as raw JSON snapshots of the touched entity.
type AuditRecord struct {
	ID         int64           `json:"id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Actor      string          `json:"actor,omitempty"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
