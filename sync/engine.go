package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/engarde-media/templatesync/catalog"
	"github.com/engarde-media/templatesync/policy"
)

// DefaultUpgradeURL is attached to denied access checks.
const DefaultUpgradeURL = "https://engarde.media/pricing"

// Engine orchestrates one sync run: resolve entitlement, load the catalog,
// provision folders, diff desired against current, apply creates.
//
// The engine only grants. A tier downgrade never revokes copies that were
// granted earlier; convergence is one-directional by design.
type Engine struct {
	catalog      CatalogStore
	entitlements EntitlementResolver
	results      ResultCache // optional
	locks        Locker      // optional
	log          *logrus.Logger
	upgradeURL   string
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithResultCache attaches a last-result cache used by the status projection
// and the terminal-skip short circuit.
func WithResultCache(rc ResultCache) Option {
	return func(e *Engine) { e.results = rc }
}

// WithLocker attaches a cross-process per-user guard.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locks = l }
}

// WithUpgradeURL overrides the upgrade link on denied access checks.
func WithUpgradeURL(u string) Option {
	return func(e *Engine) { e.upgradeURL = u }
}

func NewEngine(cs CatalogStore, er EntitlementResolver, log *logrus.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		catalog:      cs,
		entitlements: er,
		log:          log,
		upgradeURL:   DefaultUpgradeURL,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Entitlement exposes the resolved entitlement for transport-level concerns
// such as tier-aware rate limiting.
func (e *Engine) Entitlement(ctx context.Context, userID uuid.UUID) policy.Entitlement {
	return e.entitlements.Resolve(ctx, userID)
}

// Sync reconciles one user's workspace against their entitlement.
//
// force bypasses the cached terminal-skip result (a user who had not completed
// SSO provisioning on an earlier run) and retries the full pipeline. It never
// deletes or re-creates already-granted copies; denials are recomputed on
// every run regardless of force since no denial state is persisted.
func (e *Engine) Sync(ctx context.Context, userID uuid.UUID, force bool) (*Result, error) {
	log := e.log.WithField("user_id", userID)

	if !force {
		if cached := e.cachedResult(ctx, userID); cached != nil && cached.Status == StatusSkipped {
			log.Debug("returning cached skipped result")
			return cached, nil
		}
	}

	ent := e.entitlements.Resolve(ctx, userID)
	log = log.WithField("tier", ent.Tier)

	items, err := e.catalog.ListAdminTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	// Inactive users short-circuit before any workspace write: every item is
	// denied, no folder is provisioned.
	if !ent.Active {
		res := e.denyAll(userID, ent, items)
		e.cacheResult(ctx, userID, res)
		log.WithField("templates", len(items)).Info("sync denied all: user inactive")
		return res, nil
	}

	wsUserID, err := e.catalog.GetUserIDByEmail(ctx, ent.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if wsUserID == uuid.Nil {
		res := newResult(userID.String(), ent)
		res.Status = StatusSkipped
		res.Message = "user not found in workspace store; complete SSO login first"
		res.TotalTemplatesAvailable = len(items)
		e.cacheResult(ctx, userID, res)
		log.Warn("sync skipped: workspace user missing")
		return res, nil
	}

	if e.locks != nil {
		release, ok, err := e.locks.TryLock(ctx, userID)
		if err != nil {
			log.WithError(err).Warn("sync lock unavailable, relying on advisory lock")
		} else if !ok {
			return nil, ErrSyncInProgress
		} else {
			defer release()
		}
	}

	// Serialize same-user writers. Different users proceed in parallel.
	release, err := e.catalog.AcquireUserLock(ctx, wsUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer release()

	res := newResult(userID.String(), ent)
	res.TotalTemplatesAvailable = len(items)

	folders, err := e.provisionFolders(ctx, wsUserID, res)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderProvision, err)
	}

	current, err := e.catalog.ListSyncedFlows(ctx, wsUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	for _, item := range items {
		d := policy.Evaluate(item.Policy, ent)
		if !d.Granted {
			res.FlowsDenied = append(res.FlowsDenied, deniedItem(item, d.Reason))
			continue
		}
		res.TotalTemplatesAccessible++

		if _, ok := current[item.SourceID]; ok {
			res.FlowsUpToDate++
			continue
		}

		folderID, folderName := folders.destinationFor(item)
		flowID, err := e.catalog.CreateFlowFromTemplate(ctx, wsUserID, folderID, item)
		if err != nil {
			// One failed copy never aborts the rest; the next run's diff
			// picks up whatever is still missing.
			log.WithError(err).WithField("template_id", item.SourceID).Error("template copy failed")
			res.FailedTemplates = append(res.FailedTemplates, ItemResult{
				TemplateID: item.SourceID.String(),
				Name:       item.Name,
				Folder:     folderName,
				Action:     ActionFailed,
				Error:      err.Error(),
			})
			continue
		}
		res.NewFlowsAdded = append(res.NewFlowsAdded, ItemResult{
			FlowID:          flowID.String(),
			TemplateID:      item.SourceID.String(),
			Name:            item.Name,
			TemplateVersion: item.Policy.Policy.Version,
			Folder:          folderName,
			Action:          ActionCreated,
		})
	}

	res.TotalTemplatesSynced = len(res.NewFlowsAdded) + res.FlowsUpToDate
	if len(res.FailedTemplates) > 0 {
		res.Status = StatusPartial
		res.Message = fmt.Sprintf("%d template(s) failed to copy", len(res.FailedTemplates))
	} else {
		res.Status = StatusSuccess
	}

	e.cacheResult(ctx, userID, res)
	log.WithFields(logrus.Fields{
		"available":  res.TotalTemplatesAvailable,
		"accessible": res.TotalTemplatesAccessible,
		"synced":     res.TotalTemplatesSynced,
		"added":      len(res.NewFlowsAdded),
		"denied":     len(res.FlowsDenied),
		"failed":     len(res.FailedTemplates),
		"status":     res.Status,
	}).Info("sync completed")
	return res, nil
}

// userFolders holds the provisioned destination hierarchy for one run.
type userFolders struct {
	rootID   uuid.UUID
	walkerID uuid.UUID
	flowsID  uuid.UUID
}

// destinationFor routes capability items into the walker subdivision and
// everything else into the free subdivision.
func (f userFolders) destinationFor(item catalog.Item) (uuid.UUID, string) {
	if !item.Policy.Unparseable && item.Policy.Policy.Category == policy.CategoryWalkerAgents {
		return f.walkerID, catalog.UserRootFolder + "/" + catalog.WalkerAgentsFolder
	}
	return f.flowsID, catalog.UserRootFolder + "/" + catalog.EngardeFlowsFolder
}

func (e *Engine) provisionFolders(ctx context.Context, wsUserID uuid.UUID, res *Result) (userFolders, error) {
	var f userFolders

	rootID, created, err := e.catalog.EnsureFolder(ctx, wsUserID, catalog.UserRootFolder, nil)
	if err != nil {
		return f, err
	}
	if created {
		res.FoldersCreated = append(res.FoldersCreated, catalog.UserRootFolder)
	}
	f.rootID = rootID

	walkerID, created, err := e.catalog.EnsureFolder(ctx, wsUserID, catalog.WalkerAgentsFolder, &rootID)
	if err != nil {
		return f, err
	}
	if created {
		res.FoldersCreated = append(res.FoldersCreated, catalog.UserRootFolder+"/"+catalog.WalkerAgentsFolder)
	}
	f.walkerID = walkerID

	flowsID, created, err := e.catalog.EnsureFolder(ctx, wsUserID, catalog.EngardeFlowsFolder, &rootID)
	if err != nil {
		return f, err
	}
	if created {
		res.FoldersCreated = append(res.FoldersCreated, catalog.UserRootFolder+"/"+catalog.EngardeFlowsFolder)
	}
	f.flowsID = flowsID

	return f, nil
}

// denyAll builds the fail-closed result for inactive users: every catalog item
// denied, zero accessible, zero synced.
func (e *Engine) denyAll(userID uuid.UUID, ent policy.Entitlement, items []catalog.Item) *Result {
	res := newResult(userID.String(), ent)
	res.Status = StatusSuccess
	res.Message = "subscription inactive"
	res.TotalTemplatesAvailable = len(items)
	for _, item := range items {
		res.FlowsDenied = append(res.FlowsDenied, deniedItem(item, policy.DenyUserInactive))
	}
	return res
}

func deniedItem(item catalog.Item, reason policy.DenialReason) ItemResult {
	return ItemResult{
		TemplateID:      item.SourceID.String(),
		Name:            item.Name,
		TemplateVersion: item.Policy.Policy.Version,
		Folder:          item.FolderName,
		Action:          ActionDenied,
		DenialReason:    string(reason),
	}
}

func (e *Engine) cachedResult(ctx context.Context, userID uuid.UUID) *Result {
	if e.results == nil {
		return nil
	}
	res, ok, err := e.results.Get(ctx, userID)
	if err != nil {
		e.log.WithError(err).Debug("result cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	return res
}

func (e *Engine) cacheResult(ctx context.Context, userID uuid.UUID, res *Result) {
	if e.results == nil {
		return
	}
	if err := e.results.Put(ctx, userID, res); err != nil {
		e.log.WithError(err).Debug("result cache write failed")
	}
}
