package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"church_app_backend/internal/domain"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes profile counts for the admin surfaces without leaking
// MongoDB internals to callers.
type StatsProvider struct {
	users countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the users collection.
func NewStatsProvider(users countCollection) *StatsProvider {
	return &StatsProvider{users: users}
}

// CountProfiles returns the number of documents in the users collection.
func (p *StatsProvider) CountProfiles(ctx context.Context) (int64, error) {
	return p.count(ctx, "count profiles", bson.D{})
}

// CountAdmins returns the number of profiles holding the admin role.
func (p *StatsProvider) CountAdmins(ctx context.Context) (int64, error) {
	return p.count(ctx, "count admins", bson.D{{Key: "role", Value: domain.RoleAdmin}})
}

// ProfileStats gathers both counts. The two reads are not a snapshot; a
// concurrent promotion may land between them.
func (p *StatsProvider) ProfileStats(ctx context.Context) (domain.ProfileStats, error) {
	total, err := p.CountProfiles(ctx)
	if err != nil {
		return domain.ProfileStats{}, err
	}

	admins, err := p.CountAdmins(ctx)
	if err != nil {
		return domain.ProfileStats{}, err
	}

	return domain.ProfileStats{Total: total, Admins: admins}, nil
}

func (p *StatsProvider) count(ctx context.Context, op string, filter bson.D) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.users.CountDocuments(ctx, filter)
	if err != nil {
		return 0, domain.WrapCollaborator(op, domain.ErrStoreUnavailable, err)
	}

	return count, nil
}
