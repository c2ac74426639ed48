// Package catalog reads the admin-maintained template catalog and manages the
// user-owned workspace side of the flow database: folder provisioning, flow
// copies, and the sync marker that ties a copy back to its source template.
package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/engarde-media/templatesync/policy"
)

// Admin-owned source folders and the template-admin account that owns them.
const (
	AdminAccount       = "template-admin@engarde.com"
	WalkerAgentsFolder = "Walker Agents"
	EngardeFlowsFolder = "En Garde Flows"
)

// UserRootFolder is the per-user destination folder; its two subdivisions
// reuse the admin folder names.
const UserRootFolder = "En Garde"

// Item is a read-only snapshot of one admin template taken at sync start.
// The embedded policy is parsed once at load; parse failures are carried as
// an unparseable policy rather than dropping the item.
type Item struct {
	SourceID    uuid.UUID
	Name        string
	Description string
	Data        []byte
	FolderName  string
	UpdatedAt   time.Time
	Policy      policy.ParseResult
}

// SyncedFlow is a user's materialized copy of a catalog item, identified by
// the stable source template id carried in its sync marker.
type SyncedFlow struct {
	FlowID           uuid.UUID
	SourceTemplateID uuid.UUID
	Name             string
	TemplateVersion  string
	SyncedAt         time.Time
}

// UserFlow is any flow owned by the user. Template copies carry a marker;
// flows without one are the user's own work.
type UserFlow struct {
	FlowID uuid.UUID
	Name   string
	Synced *SyncedFlow
}

// syncMarker is the back-reference block written into a copy's description:
//
//	{
//	  "user_description": "This flow does X",
//	  "template_sync": {
//	    "source_template_id": "…",
//	    "template_version": "1.0.0",
//	    "synced_at": "2026-01-02T15:04:05Z"
//	  }
//	}
type syncMarker struct {
	SourceTemplateID string `json:"source_template_id"`
	TemplateVersion  string `json:"template_version"`
	SyncedAt         string `json:"synced_at"`
}

type copyEnvelope struct {
	UserDescription string      `json:"user_description,omitempty"`
	TemplateSync    *syncMarker `json:"template_sync,omitempty"`
}

// encodeCopyDescription renders the description stored on a synced copy: the
// clean human description plus the sync marker.
func encodeCopyDescription(userDescription string, sourceID uuid.UUID, version string, syncedAt time.Time) string {
	env := copyEnvelope{
		UserDescription: userDescription,
		TemplateSync: &syncMarker{
			SourceTemplateID: sourceID.String(),
			TemplateVersion:  version,
			SyncedAt:         syncedAt.UTC().Format(time.RFC3339),
		},
	}
	b, err := json.Marshal(env)
	if err != nil {
		return userDescription
	}
	return string(b)
}

// parseSyncMarker extracts the back-reference from a flow description.
// Returns nil for custom flows (no marker, plain text, or malformed JSON).
func parseSyncMarker(description string) *syncMarker {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return nil
	}
	var env copyEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil
	}
	return env.TemplateSync
}
