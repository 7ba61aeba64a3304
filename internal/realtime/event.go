// Package realtime fans out row changes published by Postgres triggers
// through pg_notify to in-process subscribers.
package realtime

import (
	"encoding/json"
	"fmt"
)

// Channel is the NOTIFY channel the change triggers publish on
const Channel = "beyond_pages_changes"

// EventType is the DML operation behind a change
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Tables lists the tables that publish changes. Private tables only stream
// the caller's own rows.
var Tables = map[string]bool{
	"books":           true,
	"highlights":      true,
	"badges":          true,
	"community_posts": false,
	"post_replies":    false,
	"user_follows":    false,
}

// OwnerColumn scopes private tables to a user
const OwnerColumn = "user_id"

// IsPrivate reports whether table only streams the caller's rows
func IsPrivate(table string) bool {
	return Tables[table]
}

// Event is one decoded change notification
type Event struct {
	Table     string                 `json:"table"`
	Type      EventType              `json:"type"`
	Record    map[string]interface{} `json:"record"`
	OldRecord map[string]interface{} `json:"old_record"`
}

// ParseEvent decodes a notification payload
func ParseEvent(payload string) (*Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("decode change payload: %w", err)
	}
	if _, ok := Tables[e.Table]; !ok {
		return nil, fmt.Errorf("unknown table %q", e.Table)
	}
	switch e.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return nil, fmt.Errorf("unknown change type %q", e.Type)
	}
	return &e, nil
}

// Filter is an equality filter on one column. The zero Filter matches every
// row.
type Filter struct {
	Column string
	Value  string
}

// Match reports whether e passes the filter. Deletes carry only the old row.
func (f Filter) Match(e *Event) bool {
	if f.Column == "" {
		return true
	}
	row := e.Record
	if e.Type == EventDelete || row == nil {
		row = e.OldRecord
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}
