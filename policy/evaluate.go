package policy

// Decision is the outcome of evaluating one template policy against one
// entitlement. Granted decisions carry no reason.
type Decision struct {
	Granted bool
	Reason  DenialReason
}

func granted() Decision              { return Decision{Granted: true} }
func denied(r DenialReason) Decision { return Decision{Reason: r} }

// Evaluate applies the gating rule. It is pure: no I/O, no clock, and the
// same inputs always produce the same decision.
//
// Rules:
//   - inactive users are denied everything (fail-closed),
//   - unparseable metadata denies the item,
//   - engarde_flows items need only the tier comparison (free-tier items
//     declare required_tier=free, so this passes for every active user; the
//     comparison still runs in case malformed metadata declares a higher tier
//     on a "free" item),
//   - walker_agents items need the tier AND the explicitly enabled capability,
//   - an unknown category is a metadata defect and denies the item.
func Evaluate(policy ParseResult, ent Entitlement) Decision {
	if !ent.Active {
		return denied(DenyUserInactive)
	}
	if policy.Unparseable {
		return denied(DenyPolicyUnparseable)
	}

	p := policy.Policy
	switch p.Category {
	case CategoryEngardeFlows:
		if !ent.Tier.AtLeast(p.RequiredTier) {
			return denied(DenyTierTooLow)
		}
		return granted()

	case CategoryWalkerAgents:
		if !ent.Tier.AtLeast(p.RequiredTier) {
			return denied(DenyTierTooLow)
		}
		if p.Capability == "" {
			// Capability-gated item with no capability key cannot be gated.
			return denied(DenyPolicyUnparseable)
		}
		if !ent.HasCapability(p.Capability) {
			return denied(DenyCapabilityNotEnabled)
		}
		return granted()

	default:
		return denied(DenyPolicyUnparseable)
	}
}
