// Package admin provides startup helpers for ensuring the configured profiles
// hold the admin role.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
)

type profileStore interface {
	GetByID(ctx context.Context, id string) (domain.UserProfile, bool, error)
	PromoteToAdmin(ctx context.Context, id string) (domain.Promotion, error)
}

// Result summarizes one bootstrap run.
type Result struct {
	Promoted []string
	Already  []string
	Missing  []string
}

// Registrar promotes the configured bootstrap admins.
type Registrar struct {
	profiles profileStore
	logger   *logrus.Entry
}

// NewRegistrar constructs a Registrar over the profile store.
func NewRegistrar(profiles profileStore, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		profiles: profiles,
		logger:   logger,
	}
}

// EnsureAdmins promotes every listed profile that is not already an admin.
// Profiles that do not exist are skipped, since creation belongs to the
// identity flow. Store failures abort the run.
func (r *Registrar) EnsureAdmins(ctx context.Context, ids []string) (Result, error) {
	if r == nil || r.profiles == nil {
		return Result{}, errors.New("admin registrar is not initialized")
	}
	if ctx == nil {
		return Result{}, errors.New("context is required")
	}

	var result Result
	seen := make(map[string]struct{}, len(ids))

	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		profile, found, err := r.profiles.GetByID(ctx, id)
		if err != nil {
			return result, fmt.Errorf("ensure admin %s: %w", id, err)
		}
		if !found {
			result.Missing = append(result.Missing, id)
			r.logger.WithFields(logging.Fields{
				"event":   "admin_bootstrap_missing",
				"user_id": id,
			}).Warn("bootstrap admin profile does not exist")
			continue
		}
		if profile.Role == domain.RoleAdmin {
			result.Already = append(result.Already, id)
			continue
		}

		if _, err := r.profiles.PromoteToAdmin(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result.Missing = append(result.Missing, id)
				continue
			}
			return result, fmt.Errorf("ensure admin %s: %w", id, err)
		}
		result.Promoted = append(result.Promoted, id)
	}

	r.logger.WithFields(logging.Fields{
		"event":          "admin_bootstrap",
		"promoted":       len(result.Promoted),
		"already_admins": len(result.Already),
		"missing":        len(result.Missing),
	}).Info("ensured bootstrap admins")

	return result, nil
}
