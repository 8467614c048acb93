// Package profile manages the lifecycle of user profile documents: creation
// with full replace semantics and promotion with partial updates.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
)

const entityName = "user profile"

// userCollection is the document store surface the Store relies on. Replace
// and partial update are separate methods so a promotion can never clobber
// fields written elsewhere.
type userCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Recorder receives profile lifecycle counts.
type Recorder interface {
	IncProfileCreated(role string)
	IncProfilePromoted()
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(s *Store) {
		s.recorder = recorder
	}
}

// Store creates, promotes and reads user profiles in the users collection.
type Store struct {
	users    userCollection
	logger   *logrus.Entry
	now      func() time.Time
	recorder Recorder
}

// NewStore constructs a Store backed by the provided users collection.
func NewStore(users userCollection, logger *logrus.Entry, opts ...Option) *Store {
	if logger == nil {
		logger = logging.Logger()
	}

	s := &Store{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateProfile writes the full profile for id, replacing any existing
// document. Role defaults to RoleUser and both timestamps are set to now.
func (s *Store) CreateProfile(ctx context.Context, id string, fields domain.ProfileFields) (domain.UserProfile, error) {
	if err := s.ready(ctx); err != nil {
		return domain.UserProfile{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: id is required", domain.ErrInvalidRequest)
	}

	role := fields.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.UserProfile{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRequest, role)
	}

	now := s.timestamp()
	profile := domain.UserProfile{
		ID:        id,
		Email:     strings.TrimSpace(fields.Email),
		FullName:  strings.TrimSpace(fields.FullName),
		Role:      role,
		Phone:     strings.TrimSpace(fields.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := s.users.ReplaceOne(ctx,
		bson.M{"_id": id},
		profile,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return domain.UserProfile{}, storeFailure(ctx, "create profile", err)
	}

	if s.recorder != nil {
		s.recorder.IncProfileCreated(string(role))
	}

	s.logger.WithFields(logging.Fields{
		"event":    "profile_created",
		"user_id":  id,
		"role":     string(role),
		"replaced": result != nil && result.MatchedCount > 0,
	}).Info("created user profile")

	return profile, nil
}

// PromoteToAdmin sets role=admin on an existing profile and bumps updated_at,
// leaving every other field untouched. It returns the identifying fields of
// the profile as they were before the change.
func (s *Store) PromoteToAdmin(ctx context.Context, id string) (domain.Promotion, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Promotion{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Promotion{}, fmt.Errorf("%w: id is required", domain.ErrInvalidRequest)
	}

	current, found, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Promotion{}, err
	}
	if !found {
		return domain.Promotion{}, domain.NewNotFoundError(entityName, id)
	}

	// updated_at must move forward even when the clock has not.
	now := s.timestamp()
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Millisecond)
	}

	result, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"role":       domain.RoleAdmin,
			"updated_at": now,
		}},
	)
	if err != nil {
		return domain.Promotion{}, storeFailure(ctx, "promote profile", err)
	}
	if result == nil || result.MatchedCount == 0 {
		return domain.Promotion{}, domain.NewNotFoundError(entityName, id)
	}

	if s.recorder != nil {
		s.recorder.IncProfilePromoted()
	}

	s.logger.WithFields(logging.Fields{
		"event":         "profile_promoted",
		"user_id":       id,
		"email":         current.Email,
		"previous_role": string(current.Role),
	}).Info("promoted user profile to admin")

	return domain.Promotion{
		ID:           current.ID,
		Email:        current.Email,
		FullName:     current.FullName,
		PreviousRole: current.Role,
		PromotedAt:   now,
	}, nil
}

// GetByID fetches a profile. Absence is reported through the boolean, not
// as an error.
func (s *Store) GetByID(ctx context.Context, id string) (domain.UserProfile, bool, error) {
	if err := s.ready(ctx); err != nil {
		return domain.UserProfile{}, false, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.UserProfile{}, false, fmt.Errorf("%w: id is required", domain.ErrInvalidRequest)
	}

	result := s.users.FindOne(ctx, bson.M{"_id": id})
	if result == nil {
		return domain.UserProfile{}, false, fmt.Errorf("find profile: %w: no result", domain.ErrStoreUnavailable)
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, storeFailure(ctx, "find profile", err)
	}

	var profile domain.UserProfile
	if err := result.Decode(&profile); err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("decode profile: %w: %w", domain.ErrStoreUnavailable, err)
	}

	return profile, true, nil
}

func (s *Store) ready(ctx context.Context) error {
	if s == nil || s.users == nil {
		return errors.New("profile store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// storeFailure prefers the context's own error so callers can tell a
// cancelled or expired call from an unavailable store.
func storeFailure(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(ctxErr, err)
	}
	return domain.WrapCollaborator(op, domain.ErrStoreUnavailable, err)
}
