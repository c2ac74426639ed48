package entitlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/engarde-media/templatesync/policy"
)

// Resolver turns raw subscription rows into a policy.Entitlement.
type Resolver struct {
	store *Store
	log   *logrus.Logger
}

func NewResolver(store *Store, log *logrus.Logger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{store: store, log: log}
}

// Resolve loads the user's entitlement. It never fails open: a missing user
// record, or any lookup failure, yields an inactive free-tier entitlement with
// no capabilities. Lookup failures are logged but deliberately not
// distinguished from "inactive" in the returned value.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) policy.Entitlement {
	inactive := policy.Entitlement{
		UserID:       userID.String(),
		Tier:         policy.TierFree,
		Capabilities: map[policy.Capability]bool{},
		Active:       false,
	}

	rec, err := r.store.GetUser(ctx, userID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Warn("entitlement lookup failed, resolving as inactive")
		return inactive
	}
	if rec == nil {
		r.log.WithField("user_id", userID).Warn("user not found in entitlement store")
		return inactive
	}

	caps := map[policy.Capability]bool{}
	enabled, err := r.store.ListEnabledCapabilities(ctx, userID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Warn("capability lookup failed, resolving as inactive")
		return inactive
	}
	for _, c := range enabled {
		caps[c] = true
	}

	ent := policy.Entitlement{
		UserID:       rec.ID.String(),
		Email:        rec.Email,
		Tier:         policy.ParseTier(rec.Tier),
		Capabilities: caps,
		Active:       rec.Active,
		TenantID:     rec.TenantID,
	}
	r.log.WithFields(logrus.Fields{
		"user_id": ent.UserID,
		"tier":    ent.Tier,
		"agents":  ent.EnabledCapabilities(),
		"active":  ent.Active,
	}).Debug("resolved entitlement")
	return ent
}
