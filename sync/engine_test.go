package sync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engarde-media/templatesync/catalog"
	"github.com/engarde-media/templatesync/policy"
	"github.com/engarde-media/templatesync/sync"
	synctest "github.com/engarde-media/templatesync/testing"
)

func walkerDesc(tier, agent string) string {
	return fmt.Sprintf(`{"user_description":"walker","template_metadata":{"required_tier":%q,"walker_agent_type":%q,"category":"walker_agents","version":"1.0.0"}}`, tier, agent)
}

func freeDesc() string {
	return `{"user_description":"free flow","template_metadata":{"required_tier":"free","category":"engarde_flows","version":"1.0.0"}}`
}

type fixture struct {
	store    *synctest.CatalogStore
	resolver *synctest.Resolver
	cache    *synctest.ResultCache
	engine   *sync.Engine
	userID   uuid.UUID

	seo, content, paidAds, audience uuid.UUID
	free1, free2                    uuid.UUID
}

// newFixture builds the catalog from the reference scenario: four walker
// templates (seo/pro, content/pro, paid_ads/pro, audience_intelligence/
// enterprise) and two free templates, plus a provisioned workspace user.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    synctest.NewCatalogStore(),
		resolver: synctest.NewResolver(),
		cache:    synctest.NewResultCache(),
		userID:   uuid.New(),
	}
	f.seo = f.store.AddTemplate("SEO Walker", catalog.WalkerAgentsFolder, walkerDesc("pro", "seo"))
	f.content = f.store.AddTemplate("Content Walker", catalog.WalkerAgentsFolder, walkerDesc("pro", "content"))
	f.paidAds = f.store.AddTemplate("Paid Ads Walker", catalog.WalkerAgentsFolder, walkerDesc("pro", "paid_ads"))
	f.audience = f.store.AddTemplate("Audience Walker", catalog.WalkerAgentsFolder, walkerDesc("enterprise", "audience_intelligence"))
	f.free1 = f.store.AddTemplate("Welcome Flow", catalog.EngardeFlowsFolder, freeDesc())
	f.free2 = f.store.AddTemplate("Onboarding Flow", catalog.EngardeFlowsFolder, freeDesc())

	f.store.AddUser("pro@example.com")
	f.resolver.Set(f.userID, policy.Entitlement{
		Email: "pro@example.com",
		Tier:  policy.TierPro,
		Capabilities: map[policy.Capability]bool{
			policy.CapabilitySEO:     true,
			policy.CapabilityContent: true,
		},
		Active: true,
	})
	f.engine = sync.NewEngine(f.store, f.resolver, nil, sync.WithResultCache(f.cache))
	return f
}

func deniedReasons(res *sync.Result) map[uuid.UUID]string {
	out := map[uuid.UUID]string{}
	for _, d := range res.FlowsDenied {
		out[uuid.MustParse(d.TemplateID)] = d.DenialReason
	}
	return out
}

func TestSyncReferenceScenario(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.Sync(context.Background(), f.userID, false)
	require.NoError(t, err)

	assert.Equal(t, sync.StatusSuccess, res.Status)
	assert.Equal(t, 6, res.TotalTemplatesAvailable)
	assert.Equal(t, 4, res.TotalTemplatesAccessible)
	assert.Equal(t, 4, res.TotalTemplatesSynced)
	assert.Len(t, res.NewFlowsAdded, 4)

	reasons := deniedReasons(res)
	assert.Equal(t, "capability_not_enabled", reasons[f.paidAds])
	assert.Equal(t, "tier_too_low", reasons[f.audience])
	assert.Len(t, reasons, 2)

	// Root folder plus both subdivisions on first run.
	assert.Len(t, res.FoldersCreated, 3)
	assert.Equal(t, "pro", res.SubscriptionTier)
	assert.Equal(t, []string{"content", "seo"}, res.EnabledWalkerAgents)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)

	second, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)

	assert.Empty(t, second.NewFlowsAdded, "second run must create nothing")
	assert.Equal(t, 4, second.FlowsUpToDate)
	assert.Equal(t, first.TotalTemplatesSynced, second.TotalTemplatesSynced)
	assert.Empty(t, second.FoldersCreated, "folders must not be re-created")
}

func TestSyncInactiveUserDeniesEverything(t *testing.T) {
	f := newFixture(t)
	f.resolver.Set(f.userID, policy.Entitlement{
		Email:  "pro@example.com",
		Tier:   policy.TierAgency,
		Active: false,
		Capabilities: map[policy.Capability]bool{
			policy.CapabilitySEO: true,
		},
	})

	res, err := f.engine.Sync(context.Background(), f.userID, false)
	require.NoError(t, err)

	assert.Equal(t, 0, res.TotalTemplatesAccessible)
	assert.Equal(t, 0, res.TotalTemplatesSynced)
	assert.Len(t, res.FlowsDenied, 6)
	for _, d := range res.FlowsDenied {
		assert.Equal(t, "user_inactive", d.DenialReason)
	}
	assert.Empty(t, res.FoldersCreated, "inactive user must not trigger folder provisioning")
	assert.Equal(t, 0, f.store.CreateCalls)
}

func TestSyncUnknownUserFailsClosed(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New() // never registered with the resolver

	res, err := f.engine.Sync(context.Background(), stranger, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalTemplatesAccessible)
	assert.Len(t, res.FlowsDenied, 6)
}

func TestSyncMonotonicUpgrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)

	// Upgrade to enterprise and enable the remaining agents.
	f.resolver.Set(f.userID, policy.Entitlement{
		Email: "pro@example.com",
		Tier:  policy.TierEnterprise,
		Capabilities: map[policy.Capability]bool{
			policy.CapabilitySEO:                  true,
			policy.CapabilityContent:              true,
			policy.CapabilityPaidAds:              true,
			policy.CapabilityAudienceIntelligence: true,
		},
		Active: true,
	})

	second, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, second.TotalTemplatesAccessible, first.TotalTemplatesAccessible)
	assert.Equal(t, 6, second.TotalTemplatesAccessible)
	assert.Len(t, second.NewFlowsAdded, 2, "only the newly unlocked items are created")
	assert.Equal(t, 4, second.FlowsUpToDate, "previously granted items stay granted")
	assert.Empty(t, second.FlowsDenied)
}

func TestSyncDowngradeNeverRevokes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)

	f.resolver.Set(f.userID, policy.Entitlement{
		Email:        "pro@example.com",
		Tier:         policy.TierFree,
		Capabilities: map[policy.Capability]bool{},
		Active:       true,
	})

	res, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)

	// The walker copies stay in place; they are simply reported denied now.
	assert.Equal(t, 2, res.FlowsUpToDate, "free items remain synced")
	assert.Empty(t, res.NewFlowsAdded)
	wsUserID, _ := f.store.GetUserIDByEmail(ctx, "pro@example.com")
	synced, err := f.store.ListSyncedFlows(ctx, wsUserID)
	require.NoError(t, err)
	assert.Len(t, synced, 4, "downgrade must not delete existing copies")
}

func TestSyncUnparseableMetadataStillDecided(t *testing.T) {
	f := newFixture(t)
	broken := f.store.AddTemplate("Broken Template", catalog.WalkerAgentsFolder, "just some plain text")

	res, err := f.engine.Sync(context.Background(), f.userID, false)
	require.NoError(t, err)

	assert.Equal(t, 7, res.TotalTemplatesAvailable)
	total := len(res.NewFlowsAdded) + res.FlowsUpToDate + len(res.FlowsDenied) + len(res.FailedTemplates)
	assert.Equal(t, 7, total, "every catalog item yields exactly one decision")
	assert.Equal(t, "policy_unparseable", deniedReasons(res)[broken])
}

func TestSyncPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailCreate[f.free1] = errors.New("insert timeout")

	res, err := f.engine.Sync(context.Background(), f.userID, false)
	require.NoError(t, err, "per-item failures do not fail the run")

	assert.Equal(t, sync.StatusPartial, res.Status)
	assert.Len(t, res.NewFlowsAdded, 3, "remaining creates still happen")
	require.Len(t, res.FailedTemplates, 1)
	assert.Equal(t, f.free1.String(), res.FailedTemplates[0].TemplateID)

	// The next run converges: only the previously failed item is created.
	delete(f.store.FailCreate, f.free1)
	second, err := f.engine.Sync(context.Background(), f.userID, false)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusSuccess, second.Status)
	require.Len(t, second.NewFlowsAdded, 1)
	assert.Equal(t, f.free1.String(), second.NewFlowsAdded[0].TemplateID)
	assert.Equal(t, 4, second.TotalTemplatesSynced)
}

func TestSyncCatalogUnavailableIsFatal(t *testing.T) {
	f := newFixture(t)
	f.store.ListErr = errors.New("connection refused")

	res, err := f.engine.Sync(context.Background(), f.userID, false)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, sync.ErrCatalogUnavailable)
	assert.True(t, sync.Retryable(err))
}

func TestSyncSkippedUserAndForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Entitlement exists but the workspace user was never provisioned.
	f.resolver.Set(f.userID, policy.Entitlement{
		Email:        "never-logged-in@example.com",
		Tier:         policy.TierPro,
		Active:       true,
		Capabilities: map[policy.Capability]bool{policy.CapabilitySEO: true},
	})

	res, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusSkipped, res.Status)
	assert.Equal(t, 0, f.store.CreateCalls)

	// User completes SSO provisioning. A normal run still returns the cached
	// terminal skip; force retries the pipeline.
	f.store.AddUser("never-logged-in@example.com")

	cached, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusSkipped, cached.Status)

	forced, err := f.engine.Sync(ctx, f.userID, true)
	require.NoError(t, err)
	assert.Equal(t, sync.StatusSuccess, forced.Status)
	assert.Len(t, forced.NewFlowsAdded, 3) // seo walker + two free flows
}

func TestStatusProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Sync(ctx, f.userID, false)
	require.NoError(t, err)
	wsUserID, _ := f.store.GetUserIDByEmail(ctx, "pro@example.com")
	f.store.AddCustomFlow(wsUserID, "My Own Flow")

	st, err := f.engine.Status(ctx, f.userID)
	require.NoError(t, err)

	assert.Equal(t, "pro", st.SubscriptionTier)
	assert.Equal(t, 4, st.AccessibleTemplates)
	assert.Equal(t, 2, st.DeniedTemplates)
	assert.Equal(t, 5, st.TotalFlows)
	assert.Equal(t, 4, st.TemplateFlowsCount)
	assert.Equal(t, 1, st.CustomFlowsCount)
	require.NotNil(t, st.LastSyncAt)

	// Only the tier denial is an upgrade opportunity; the capability denial
	// is solved by enabling the agent, not by upgrading.
	require.Len(t, st.UpgradeOpportunities, 1)
	assert.Equal(t, "Audience Walker", st.UpgradeOpportunities[0].TemplateName)
	assert.Equal(t, "enterprise", st.UpgradeOpportunities[0].RequiredTier)
}

func TestStatusWritesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.CreateCalls)
}

func TestCheckAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	granted, err := f.engine.CheckAccess(ctx, f.userID, f.seo)
	require.NoError(t, err)
	assert.True(t, granted.HasAccess)
	assert.Empty(t, granted.UpgradeURL)

	denied, err := f.engine.CheckAccess(ctx, f.userID, f.audience)
	require.NoError(t, err)
	assert.False(t, denied.HasAccess)
	assert.Equal(t, "tier_too_low", denied.Reason)
	assert.Equal(t, "enterprise", denied.RequiredTier)
	assert.Equal(t, sync.DefaultUpgradeURL, denied.UpgradeURL)

	missing, err := f.engine.CheckAccess(ctx, f.userID, uuid.New())
	require.NoError(t, err)
	assert.False(t, missing.HasAccess)
	assert.Equal(t, "template not found", missing.Reason)
}
