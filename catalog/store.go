package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/engarde-media/templatesync/policy"
)

// Store provides catalog and workspace access against the flow database.
type Store struct {
	pg  *pgxpool.Pool
	log *logrus.Logger
}

func NewStore(pg *pgxpool.Pool, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{pg: pg, log: log}
}

// ListAdminTemplates loads every template under the two admin source folders,
// in folder/name order. Metadata is parsed per item; items with unparseable
// metadata are included with the sentinel policy so they surface as denials
// instead of vanishing.
func (s *Store) ListAdminTemplates(ctx context.Context) ([]Item, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT f.id, f.name, f.data, f.description, f.updated_at, fol.name
		FROM flow f
		JOIN "user" u ON f.user_id = u.id
		JOIN folder fol ON f.folder_id = fol.id
		WHERE u.username = $1 AND fol.name IN ($2, $3)
		ORDER BY fol.name, f.name`,
		AdminAccount, EngardeFlowsFolder, WalkerAgentsFolder,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it   Item
			data []byte
			desc *string
		)
		if err := rows.Scan(&it.SourceID, &it.Name, &data, &desc, &it.UpdatedAt, &it.FolderName); err != nil {
			return nil, err
		}
		it.Data = data
		if desc != nil {
			it.Description = *desc
		}
		it.Policy = policy.ParseMetadata(it.Description)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.log.WithField("count", len(items)).Debug("loaded admin templates")
	return items, nil
}

// GetUserIDByEmail resolves the workspace-side user id. The workspace store
// assigns its own ids at SSO provisioning, keyed by the email used as
// username. Returns uuid.Nil when the user has not been provisioned yet.
func (s *Store) GetUserIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	if email == "" {
		return uuid.Nil, nil
	}
	var id uuid.UUID
	err := s.pg.QueryRow(ctx, `SELECT id FROM "user" WHERE username = $1 LIMIT 1`, email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// EnsureFolder is an idempotent get-or-create keyed by (user, name, parent).
// Repeated calls return the existing folder id and create nothing.
func (s *Store) EnsureFolder(ctx context.Context, userID uuid.UUID, name string, parentID *uuid.UUID) (uuid.UUID, bool, error) {
	var (
		id  uuid.UUID
		err error
	)
	if parentID != nil {
		err = s.pg.QueryRow(ctx, `
			SELECT id FROM folder
			WHERE user_id = $1 AND name = $2 AND parent_id = $3`,
			userID, name, *parentID,
		).Scan(&id)
	} else {
		err = s.pg.QueryRow(ctx, `
			SELECT id FROM folder
			WHERE user_id = $1 AND name = $2 AND parent_id IS NULL`,
			userID, name,
		).Scan(&id)
	}
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, err
	}

	id = uuid.New()
	if _, err := s.pg.Exec(ctx, `
		INSERT INTO folder (id, name, user_id, parent_id)
		VALUES ($1, $2, $3, $4)`,
		id, name, userID, parentID,
	); err != nil {
		return uuid.Nil, false, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "folder": name}).Info("created folder")
	return id, true, nil
}

// ListUserFlows returns every flow the user owns, with the sync marker parsed
// where present so callers can tell template copies from custom flows.
func (s *Store) ListUserFlows(ctx context.Context, userID uuid.UUID) ([]UserFlow, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, name, description
		FROM flow
		WHERE user_id = $1
		ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []UserFlow
	for rows.Next() {
		var (
			uf   UserFlow
			desc *string
		)
		if err := rows.Scan(&uf.FlowID, &uf.Name, &desc); err != nil {
			return nil, err
		}
		if desc != nil {
			if m := parseSyncMarker(*desc); m != nil {
				srcID, err := uuid.Parse(m.SourceTemplateID)
				if err == nil {
					sf := &SyncedFlow{
						FlowID:           uf.FlowID,
						SourceTemplateID: srcID,
						Name:             uf.Name,
						TemplateVersion:  m.TemplateVersion,
					}
					if ts, err := time.Parse(time.RFC3339, m.SyncedAt); err == nil {
						sf.SyncedAt = ts
					}
					uf.Synced = sf
				}
			}
		}
		flows = append(flows, uf)
	}
	return flows, rows.Err()
}

// ListSyncedFlows returns the user's template copies keyed by source template
// id — the current set for the reconciliation diff.
func (s *Store) ListSyncedFlows(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]SyncedFlow, error) {
	flows, err := s.ListUserFlows(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]SyncedFlow)
	for _, f := range flows {
		if f.Synced != nil {
			out[f.Synced.SourceTemplateID] = *f.Synced
		}
	}
	return out, nil
}

// CreateFlowFromTemplate materializes a catalog item into the user's folder.
// The copy carries the clean human description plus the sync marker that keys
// future diffs by source template id.
func (s *Store) CreateFlowFromTemplate(ctx context.Context, userID, folderID uuid.UUID, item Item) (uuid.UUID, error) {
	flowID := uuid.New()
	desc := encodeCopyDescription(policy.UserDescription(item.Description), item.SourceID, item.Policy.Policy.Version, time.Now())

	if _, err := s.pg.Exec(ctx, `
		INSERT INTO flow (id, user_id, name, description, data, folder_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)`,
		flowID, userID, item.Name, desc, item.Data, folderID,
	); err != nil {
		return uuid.Nil, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"template_id": item.SourceID,
		"flow_id":     flowID,
		"name":        item.Name,
	}).Info("copied template to user")
	return flowID, nil
}
