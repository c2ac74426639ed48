package policy

import "testing"

func TestParseMetadataFull(t *testing.T) {
	desc := `{
		"user_description": "SEO keyword walker",
		"template_metadata": {
			"required_tier": "pro",
			"walker_agent_type": "seo",
			"category": "walker_agents",
			"features": ["keyword_research", "serp_tracking"],
			"version": "2.1.0"
		}
	}`

	pr := ParseMetadata(desc)
	if pr.Unparseable {
		t.Fatal("valid metadata marked unparseable")
	}
	p := pr.Policy
	if p.RequiredTier != TierPro {
		t.Errorf("required tier = %q, want pro", p.RequiredTier)
	}
	if p.Capability != CapabilitySEO {
		t.Errorf("capability = %q, want seo", p.Capability)
	}
	if p.Category != CategoryWalkerAgents {
		t.Errorf("category = %q, want walker_agents", p.Category)
	}
	if len(p.Features) != 2 {
		t.Errorf("features = %v", p.Features)
	}
	if p.Version != "2.1.0" {
		t.Errorf("version = %q", p.Version)
	}
}

func TestParseMetadataDefaults(t *testing.T) {
	// Block present but sparse: required_tier defaults to free, version to 1.0.0.
	pr := ParseMetadata(`{"template_metadata": {"category": "engarde_flows"}}`)
	if pr.Unparseable {
		t.Fatal("sparse metadata marked unparseable")
	}
	if pr.Policy.RequiredTier != TierFree {
		t.Errorf("required tier = %q, want free", pr.Policy.RequiredTier)
	}
	if pr.Policy.Version != "1.0.0" {
		t.Errorf("version = %q, want 1.0.0", pr.Policy.Version)
	}
}

func TestParseMetadataUnknownTierRanksFree(t *testing.T) {
	pr := ParseMetadata(`{"template_metadata": {"required_tier": "platinum", "category": "engarde_flows"}}`)
	if pr.Unparseable {
		t.Fatal("unexpected unparseable")
	}
	if pr.Policy.RequiredTier != TierFree {
		t.Errorf("unknown tier = %q, want free", pr.Policy.RequiredTier)
	}
}

func TestParseMetadataUnparseable(t *testing.T) {
	for name, desc := range map[string]string{
		"empty":         "",
		"whitespace":    "   \n\t",
		"plain text":    "This flow scrapes keywords for you.",
		"json no block": `{"user_description": "no metadata here"}`,
		"json array":    `["not", "an", "object"]`,
		"broken json":   `{"template_metadata": {`,
	} {
		if pr := ParseMetadata(desc); !pr.Unparseable {
			t.Errorf("%s: expected unparseable, got %+v", name, pr.Policy)
		}
	}
}

func TestUserDescription(t *testing.T) {
	withMeta := `{"user_description": "Does the thing", "template_metadata": {"category": "engarde_flows"}}`
	if got := UserDescription(withMeta); got != "Does the thing" {
		t.Errorf("got %q", got)
	}
	if got := UserDescription("plain text stays"); got != "plain text stays" {
		t.Errorf("got %q", got)
	}
	if got := UserDescription(""); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestTierOrdering(t *testing.T) {
	order := []Tier{TierFree, TierPro, TierEnterprise, TierAgency}
	for i, lo := range order {
		for j, hi := range order {
			got := hi.AtLeast(lo)
			want := j >= i
			if got != want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", hi, lo, got, want)
			}
		}
	}
	if Tier("platinum").Rank() != 0 {
		t.Error("unknown tier should rank 0")
	}
}

func TestLimitsFor(t *testing.T) {
	if LimitsFor(TierFree).MaxWalkerAgents != 0 {
		t.Error("free tier should allow no walker agents")
	}
	if LimitsFor(TierAgency).MaxFlows != 1000 {
		t.Error("agency tier flow ceiling wrong")
	}
	if LimitsFor(Tier("platinum")) != LimitsFor(TierFree) {
		t.Error("unknown tier should fall back to free limits")
	}
}
