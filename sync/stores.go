// Package sync implements the reconciliation engine: given a user's resolved
// entitlement and the admin template catalog, it computes the permitted set,
// diffs it against the user's existing copies by source template id, and
// applies the minimal set of creates. Repeated runs converge: the second run
// of an unchanged world writes nothing.
package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/engarde-media/templatesync/catalog"
	"github.com/engarde-media/templatesync/policy"
)

// CatalogStore is the workspace-database capability surface the engine
// consumes. *catalog.Store is the production implementation; testing provides
// an in-memory fake.
type CatalogStore interface {
	ListAdminTemplates(ctx context.Context) ([]catalog.Item, error)
	GetUserIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
	EnsureFolder(ctx context.Context, userID uuid.UUID, name string, parentID *uuid.UUID) (id uuid.UUID, created bool, err error)
	ListUserFlows(ctx context.Context, userID uuid.UUID) ([]catalog.UserFlow, error)
	ListSyncedFlows(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]catalog.SyncedFlow, error)
	CreateFlowFromTemplate(ctx context.Context, userID, folderID uuid.UUID, item catalog.Item) (uuid.UUID, error)
	AcquireUserLock(ctx context.Context, userID uuid.UUID) (release func(), err error)
}

// EntitlementResolver loads a user's subscription state. Implementations are
// fail-closed: lookup problems resolve to an inactive entitlement.
type EntitlementResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) policy.Entitlement
}

// ResultCache keeps the last sync result per user for the status projection
// and the terminal-skip short circuit. Optional; the engine is nil-safe.
type ResultCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*Result, bool, error)
	Put(ctx context.Context, userID uuid.UUID, res *Result) error
}

// Locker is an optional cross-process guard that fast-fails a sync already
// running elsewhere for the same user. Correctness does not depend on it; the
// workspace advisory lock serializes writers regardless.
type Locker interface {
	TryLock(ctx context.Context, userID uuid.UUID) (release func(), ok bool, err error)
}
