package policy

import (
	"encoding/json"
	"strings"
)

// descriptionEnvelope is the admin-facing wire format embedded in a template's
// free-text description field:
//
//	{
//	  "user_description": "This flow does X, Y and Z",
//	  "template_metadata": {
//	    "required_tier": "pro",
//	    "walker_agent_type": "seo",
//	    "category": "walker_agents",
//	    "features": ["keyword_research"],
//	    "version": "1.0.0"
//	  }
//	}
type descriptionEnvelope struct {
	UserDescription  string           `json:"user_description"`
	TemplateMetadata *rawTemplateMeta `json:"template_metadata"`
}

type rawTemplateMeta struct {
	RequiredTier string   `json:"required_tier"`
	Capability   string   `json:"walker_agent_type"`
	Category     string   `json:"category"`
	Features     []string `json:"features"`
	Version      string   `json:"version"`
}

// ParseResult is a tagged parse outcome. A template whose metadata cannot be
// parsed is carried as Unparseable so the evaluator denies it uniformly
// instead of the loader dropping it or erroring the whole sync.
type ParseResult struct {
	Policy      TemplatePolicy
	Unparseable bool
}

// Ok wraps a successfully parsed policy.
func Ok(p TemplatePolicy) ParseResult {
	return ParseResult{Policy: p}
}

// Unparseable is the sentinel result for metadata that failed to parse.
func Unparseable() ParseResult {
	return ParseResult{Unparseable: true}
}

// ParseMetadata extracts the embedded policy from a description field.
//
// A description that is a JSON object carrying a template_metadata block
// parses with per-field defaults: a missing required_tier defaults to free and
// unknown tier strings rank as free. Anything else — empty text, plain text,
// JSON without the block — is Unparseable. Never returns an error.
func ParseMetadata(description string) ParseResult {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return Unparseable()
	}
	var env descriptionEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return Unparseable()
	}
	if env.TemplateMetadata == nil {
		return Unparseable()
	}
	raw := env.TemplateMetadata
	p := TemplatePolicy{
		RequiredTier: ParseTier(raw.RequiredTier),
		Capability:   Capability(raw.Capability),
		Category:     Category(raw.Category),
		Features:     raw.Features,
		Version:      raw.Version,
	}
	if p.Version == "" {
		p.Version = "1.0.0"
	}
	return Ok(p)
}

// UserDescription extracts the human-facing description, stripping the
// metadata envelope. Plain-text descriptions pass through unchanged.
func UserDescription(description string) string {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return ""
	}
	var env descriptionEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return description
	}
	if env.UserDescription != "" {
		return env.UserDescription
	}
	return description
}
