package policy

// Tier is an ordered subscription level. Unknown values rank as Free.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
	TierAgency     Tier = "agency"
)

var tierRanks = map[Tier]int{
	TierFree:       0,
	TierPro:        1,
	TierEnterprise: 2,
	TierAgency:     3,
}

// Rank returns the tier's position in the ordering free(0) < pro(1) <
// enterprise(2) < agency(3). Unrecognized tiers rank 0 rather than failing.
func (t Tier) Rank() int {
	return tierRanks[t]
}

// AtLeast reports whether t grants access to a resource requiring the given tier.
func (t Tier) AtLeast(required Tier) bool {
	return t.Rank() >= required.Rank()
}

// ParseTier normalizes a stored tier string. Empty or unknown values map to Free.
func ParseTier(s string) Tier {
	t := Tier(s)
	if _, ok := tierRanks[t]; ok {
		return t
	}
	return TierFree
}

// Limits are per-tier resource ceilings. Enforcement beyond the sync rate
// limit is owned by the main application; they are surfaced here so callers
// see a consistent view.
type Limits struct {
	MaxFlows        int `json:"max_flows"`
	MaxWalkerAgents int `json:"max_walker_agents"`
	MaxCampaigns    int `json:"max_campaigns"`
	APIRateLimit    int `json:"api_rate_limit"`
}

var tierLimits = map[Tier]Limits{
	TierFree:       {MaxFlows: 5, MaxWalkerAgents: 0, MaxCampaigns: 1, APIRateLimit: 100},
	TierPro:        {MaxFlows: 50, MaxWalkerAgents: 2, MaxCampaigns: 10, APIRateLimit: 1000},
	TierEnterprise: {MaxFlows: 200, MaxWalkerAgents: 4, MaxCampaigns: 100, APIRateLimit: 10000},
	TierAgency:     {MaxFlows: 1000, MaxWalkerAgents: 4, MaxCampaigns: 1000, APIRateLimit: 50000},
}

// LimitsFor returns the resource limits for a tier (Free limits for unknown tiers).
func LimitsFor(t Tier) Limits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}
