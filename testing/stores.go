// Package testing provides in-memory fakes of the sync engine's store
// surfaces so applications embedding templatesync can test reconciliation
// behavior without Postgres or Redis.
//
// Example:
//
//	cs := synctest.NewCatalogStore()
//	cs.AddUser("user@example.com")
//	cs.AddTemplate("SEO Walker", catalog.WalkerAgentsFolder, meta)
//	engine := sync.NewEngine(cs, synctest.NewResolver(), nil)
package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engarde-media/templatesync/catalog"
	"github.com/engarde-media/templatesync/policy"
	enginesync "github.com/engarde-media/templatesync/sync"
)

// CatalogStore is an in-memory sync.CatalogStore.
type CatalogStore struct {
	mu        sync.Mutex
	templates []catalog.Item
	users     map[string]uuid.UUID // email -> workspace user id
	folders   map[string]uuid.UUID // userID|name|parent -> folder id
	flows     map[uuid.UUID][]flowRow

	// ListErr, when set, fails ListAdminTemplates with this error.
	ListErr error
	// FailCreate holds source template ids whose copy should fail.
	FailCreate map[uuid.UUID]error
	// CreateCalls counts CreateFlowFromTemplate invocations.
	CreateCalls int
}

type flowRow struct {
	id       uuid.UUID
	folderID uuid.UUID
	item     catalog.Item
	syncedAt time.Time
	custom   bool
	name     string
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		users:      map[string]uuid.UUID{},
		folders:    map[string]uuid.UUID{},
		flows:      map[uuid.UUID][]flowRow{},
		FailCreate: map[uuid.UUID]error{},
	}
}

// AddUser provisions a workspace user and returns its id.
func (s *CatalogStore) AddUser(email string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[email] = id
	return id
}

// AddTemplate registers an admin template with an already-built description
// and returns its source id.
func (s *CatalogStore) AddTemplate(name, folder, description string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := catalog.Item{
		SourceID:    uuid.New(),
		Name:        name,
		Description: description,
		Data:        []byte(`{"nodes":[]}`),
		FolderName:  folder,
		UpdatedAt:   time.Now(),
		Policy:      policy.ParseMetadata(description),
	}
	s.templates = append(s.templates, it)
	return it.SourceID
}

// AddCustomFlow gives a user a flow that did not come from a template.
func (s *CatalogStore) AddCustomFlow(userID uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[userID] = append(s.flows[userID], flowRow{id: uuid.New(), custom: true, name: name})
}

func (s *CatalogStore) ListAdminTemplates(_ context.Context) ([]catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]catalog.Item, len(s.templates))
	copy(out, s.templates)
	return out, nil
}

func (s *CatalogStore) GetUserIDByEmail(_ context.Context, email string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email], nil
}

func (s *CatalogStore) EnsureFolder(_ context.Context, userID uuid.UUID, name string, parentID *uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent := ""
	if parentID != nil {
		parent = parentID.String()
	}
	key := fmt.Sprintf("%s|%s|%s", userID, name, parent)
	if id, ok := s.folders[key]; ok {
		return id, false, nil
	}
	id := uuid.New()
	s.folders[key] = id
	return id, true, nil
}

func (s *CatalogStore) ListUserFlows(_ context.Context, userID uuid.UUID) ([]catalog.UserFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.UserFlow
	for _, f := range s.flows[userID] {
		uf := catalog.UserFlow{FlowID: f.id, Name: f.name}
		if !f.custom {
			uf.Name = f.item.Name
			uf.Synced = &catalog.SyncedFlow{
				FlowID:           f.id,
				SourceTemplateID: f.item.SourceID,
				Name:             f.item.Name,
				TemplateVersion:  f.item.Policy.Policy.Version,
				SyncedAt:         f.syncedAt,
			}
		}
		out = append(out, uf)
	}
	return out, nil
}

func (s *CatalogStore) ListSyncedFlows(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]catalog.SyncedFlow, error) {
	flows, err := s.ListUserFlows(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := map[uuid.UUID]catalog.SyncedFlow{}
	for _, f := range flows {
		if f.Synced != nil {
			out[f.Synced.SourceTemplateID] = *f.Synced
		}
	}
	return out, nil
}

func (s *CatalogStore) CreateFlowFromTemplate(_ context.Context, userID, folderID uuid.UUID, item catalog.Item) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	if err, ok := s.FailCreate[item.SourceID]; ok {
		return uuid.Nil, err
	}
	id := uuid.New()
	s.flows[userID] = append(s.flows[userID], flowRow{
		id:       id,
		folderID: folderID,
		item:     item,
		syncedAt: time.Now(),
	})
	return id, nil
}

func (s *CatalogStore) AcquireUserLock(_ context.Context, _ uuid.UUID) (func(), error) {
	return func() {}, nil
}

// Resolver is an in-memory sync.EntitlementResolver. Unknown users resolve
// fail-closed, matching the production resolver.
type Resolver struct {
	mu   sync.Mutex
	ents map[uuid.UUID]policy.Entitlement
}

func NewResolver() *Resolver {
	return &Resolver{ents: map[uuid.UUID]policy.Entitlement{}}
}

// Set registers an entitlement for a user.
func (r *Resolver) Set(userID uuid.UUID, ent policy.Entitlement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ent.UserID = userID.String()
	r.ents[userID] = ent
}

func (r *Resolver) Resolve(_ context.Context, userID uuid.UUID) policy.Entitlement {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ent, ok := r.ents[userID]; ok {
		return ent
	}
	return policy.Entitlement{
		UserID:       userID.String(),
		Tier:         policy.TierFree,
		Capabilities: map[policy.Capability]bool{},
		Active:       false,
	}
}

// ResultCache is an in-memory sync.ResultCache.
type ResultCache struct {
	mu      sync.Mutex
	results map[uuid.UUID]*enginesync.Result
}

func NewResultCache() *ResultCache {
	return &ResultCache{results: map[uuid.UUID]*enginesync.Result{}}
}

func (c *ResultCache) Get(_ context.Context, userID uuid.UUID) (*enginesync.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[userID]
	return res, ok, nil
}

func (c *ResultCache) Put(_ context.Context, userID uuid.UUID, res *enginesync.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[userID] = res
	return nil
}
