package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/engarde-media/templatesync/policy"
)

// Status computes the read-only sync projection for a user: what they have,
// what they could have, and what a higher tier would unlock. No writes.
func (e *Engine) Status(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	ent := e.entitlements.Resolve(ctx, userID)

	items, err := e.catalog.ListAdminTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	st := &StatusResult{
		UserID:               userID.String(),
		SubscriptionTier:     string(ent.Tier),
		EnabledWalkerAgents:  ent.EnabledCapabilities(),
		UpgradeOpportunities: []UpgradeOpportunity{},
	}

	for _, item := range items {
		d := policy.Evaluate(item.Policy, ent)
		if d.Granted {
			st.AccessibleTemplates++
			continue
		}
		st.DeniedTemplates++
		if d.Reason == policy.DenyTierTooLow {
			st.UpgradeOpportunities = append(st.UpgradeOpportunities, UpgradeOpportunity{
				TemplateName:    item.Name,
				RequiredTier:    string(item.Policy.Policy.RequiredTier),
				WalkerAgentType: string(item.Policy.Policy.Capability),
				Features:        item.Policy.Policy.Features,
			})
		}
	}

	if ent.Active && ent.Email != "" {
		wsUserID, err := e.catalog.GetUserIDByEmail(ctx, ent.Email)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		if wsUserID != uuid.Nil {
			flows, err := e.catalog.ListUserFlows(ctx, wsUserID)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
			}
			st.TotalFlows = len(flows)
			for _, f := range flows {
				if f.Synced != nil {
					st.TemplateFlowsCount++
				} else {
					st.CustomFlowsCount++
				}
			}
		}
	}

	if cached := e.cachedResult(ctx, userID); cached != nil && cached.Status != StatusSkipped {
		ts := cached.SyncTimestamp
		st.LastSyncAt = &ts
	}

	return st, nil
}

// CheckAccess evaluates a single template for a user without syncing.
func (e *Engine) CheckAccess(ctx context.Context, userID, templateID uuid.UUID) (*AccessResult, error) {
	ent := e.entitlements.Resolve(ctx, userID)

	items, err := e.catalog.ListAdminTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	for _, item := range items {
		if item.SourceID != templateID {
			continue
		}
		d := policy.Evaluate(item.Policy, ent)
		res := &AccessResult{
			HasAccess:    d.Granted,
			TemplateID:   templateID.String(),
			TemplateName: item.Name,
		}
		if !d.Granted {
			res.Reason = string(d.Reason)
			res.RequiredTier = string(item.Policy.Policy.RequiredTier)
			res.RequiredWalkerAgent = string(item.Policy.Policy.Capability)
			res.UpgradeURL = e.upgradeURL
		}
		return res, nil
	}

	return &AccessResult{
		HasAccess:    false,
		TemplateID:   templateID.String(),
		TemplateName: "Unknown",
		Reason:       "template not found",
	}, nil
}
