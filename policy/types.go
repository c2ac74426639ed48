// Package policy defines the access-control vocabulary for template sync:
// subscription tiers, walker-agent capabilities, template categories, the
// embedded metadata wire format, and the pure evaluation rule that decides
// whether an entitlement grants a template.
package policy

import "sort"

// Capability is a named opt-in feature flag (a walker agent type), orthogonal
// to tier. Absence from a user's enabled set always means disabled; it is
// never inferred from tier.
type Capability string

const (
	CapabilitySEO                  Capability = "seo"
	CapabilityContent              Capability = "content"
	CapabilityPaidAds              Capability = "paid_ads"
	CapabilityAudienceIntelligence Capability = "audience_intelligence"
)

// Category is the gating discriminant for a template. The category decides
// the evaluation branch, not the presence or absence of a capability key.
type Category string

const (
	// CategoryWalkerAgents templates require tier AND an enabled capability.
	CategoryWalkerAgents Category = "walker_agents"
	// CategoryEngardeFlows templates are universally free (tier-checked only
	// as defense in depth against malformed metadata).
	CategoryEngardeFlows Category = "engarde_flows"
)

// TemplatePolicy is the access policy parsed from a template's embedded metadata.
type TemplatePolicy struct {
	RequiredTier Tier       `json:"required_tier"`
	Capability   Capability `json:"walker_agent_type,omitempty"`
	Category     Category   `json:"category"`
	Features     []string   `json:"features,omitempty"`
	Version      string     `json:"version,omitempty"`
}

// Entitlement is a user's resolved subscription state from the entitlement
// store. The zero value is fail-closed: inactive, free tier, no capabilities.
type Entitlement struct {
	UserID       string
	Email        string
	Tier         Tier
	Capabilities map[Capability]bool
	Active       bool
	TenantID     string
}

// HasCapability reports whether the capability was explicitly enabled.
func (e Entitlement) HasCapability(c Capability) bool {
	return e.Capabilities[c]
}

// EnabledCapabilities returns the opt-in set as a sorted slice for result
// payloads, so repeated syncs render identically.
func (e Entitlement) EnabledCapabilities() []string {
	out := make([]string, 0, len(e.Capabilities))
	for c, on := range e.Capabilities {
		if on {
			out = append(out, string(c))
		}
	}
	sort.Strings(out)
	return out
}

// DenialReason is the closed set of machine-readable denial codes.
type DenialReason string

const (
	DenyTierTooLow           DenialReason = "tier_too_low"
	DenyCapabilityNotEnabled DenialReason = "capability_not_enabled"
	DenyUserInactive         DenialReason = "user_inactive"
	DenyPolicyUnparseable    DenialReason = "policy_unparseable"
)
