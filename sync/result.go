package sync

import (
	"time"

	"github.com/engarde-media/templatesync/policy"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Item actions.
const (
	ActionCreated  = "created"
	ActionUpToDate = "up_to_date"
	ActionDenied   = "denied"
	ActionFailed   = "failed"
)

// ItemResult is the per-template outcome in a sync result.
type ItemResult struct {
	FlowID          string `json:"flow_id,omitempty"`
	TemplateID      string `json:"template_id"`
	Name            string `json:"name"`
	TemplateVersion string `json:"template_version,omitempty"`
	Folder          string `json:"folder,omitempty"`
	Action          string `json:"action"`
	DenialReason    string `json:"denial_reason,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Result is the outcome of one sync run. Every catalog item appears exactly
// once across new_flows_added, flows_up_to_date, flows_denied and
// failed_templates.
type Result struct {
	UserID        string    `json:"user_id"`
	SyncTimestamp time.Time `json:"sync_timestamp"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`

	NewFlowsAdded   []ItemResult `json:"new_flows_added"`
	FlowsUpToDate   int          `json:"flows_up_to_date"`
	FlowsDenied     []ItemResult `json:"flows_denied"`
	FailedTemplates []ItemResult `json:"failed_templates,omitempty"`

	FoldersCreated []string `json:"folders_created"`

	TotalTemplatesAvailable  int `json:"total_templates_available"`
	TotalTemplatesAccessible int `json:"total_templates_accessible"`
	TotalTemplatesSynced     int `json:"total_templates_synced"`

	SubscriptionTier    string   `json:"subscription_tier"`
	EnabledWalkerAgents []string `json:"enabled_walker_agents"`
}

// UpgradeOpportunity describes a template a user could unlock on a higher tier.
type UpgradeOpportunity struct {
	TemplateName    string   `json:"template_name"`
	RequiredTier    string   `json:"required_tier"`
	WalkerAgentType string   `json:"walker_agent_type,omitempty"`
	Features        []string `json:"features,omitempty"`
}

// StatusResult is the read-only projection served by the status endpoint.
// It never writes.
type StatusResult struct {
	UserID              string     `json:"user_id"`
	SubscriptionTier    string     `json:"subscription_tier"`
	EnabledWalkerAgents []string   `json:"enabled_walker_agents"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`

	TotalFlows         int `json:"total_flows"`
	TemplateFlowsCount int `json:"template_flows_count"`
	CustomFlowsCount   int `json:"custom_flows_count"`

	AccessibleTemplates int `json:"accessible_templates"`
	DeniedTemplates     int `json:"denied_templates"`

	UpgradeOpportunities []UpgradeOpportunity `json:"upgrade_opportunities"`
}

// AccessResult is the outcome of a single-template access check.
type AccessResult struct {
	HasAccess           bool   `json:"has_access"`
	TemplateID          string `json:"template_id"`
	TemplateName        string `json:"template_name"`
	Reason              string `json:"reason,omitempty"`
	RequiredTier        string `json:"required_tier,omitempty"`
	RequiredWalkerAgent string `json:"required_walker_agent,omitempty"`
	UpgradeURL          string `json:"upgrade_url,omitempty"`
}

func newResult(userID string, ent policy.Entitlement) *Result {
	return &Result{
		UserID:              userID,
		SyncTimestamp:       time.Now().UTC(),
		NewFlowsAdded:       []ItemResult{},
		FlowsDenied:         []ItemResult{},
		FoldersCreated:      []string{},
		SubscriptionTier:    string(ent.Tier),
		EnabledWalkerAgents: ent.EnabledCapabilities(),
	}
}
