package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"church_app_backend/internal/domain"
)

func TestStatsProviderCountsProfilesAndAdmins(t *testing.T) {
	users := &stubCountCollection{counts: []int64{12, 3}}

	provider := NewStatsProvider(users)

	stats, err := provider.ProfileStats(context.Background())
	if err != nil {
		t.Fatalf("expected stats to succeed, got error: %v", err)
	}
	if stats.Total != 12 || stats.Admins != 3 {
		t.Fatalf("expected 12 profiles and 3 admins, got %+v", stats)
	}
	if users.calls != 2 {
		t.Fatalf("expected two count calls, got %d", users.calls)
	}

	if len(users.filters[0]) != 0 {
		t.Fatalf("expected empty filter for total, got %v", users.filters[0])
	}
	adminFilter := users.filters[1]
	if len(adminFilter) != 1 || adminFilter[0].Key != "role" || adminFilter[0].Value != domain.RoleAdmin {
		t.Fatalf("expected role filter for admins, got %v", adminFilter)
	}
}

func TestStatsProviderRequiresContext(t *testing.T) {
	provider := NewStatsProvider(&stubCountCollection{})

	if _, err := provider.CountProfiles(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := provider.CountAdmins(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

func TestStatsProviderRequiresInitialization(t *testing.T) {
	var provider *StatsProvider

	if _, err := provider.CountProfiles(context.Background()); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := provider.ProfileStats(context.Background()); err == nil {
		t.Fatalf("expected error for nil provider")
	}
}

func TestStatsProviderClassifiesErrors(t *testing.T) {
	expectedErr := errors.New("count failed")
	provider := NewStatsProvider(&stubCountCollection{err: expectedErr})

	_, err := provider.ProfileStats(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}

	provider = NewStatsProvider(&stubCountCollection{err: context.DeadlineExceeded})
	if _, err := provider.CountAdmins(context.Background()); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

type stubCountCollection struct {
	counts  []int64
	err     error
	calls   int
	filters []bson.D
}

func (s *stubCountCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	s.calls++
	doc, _ := filter.(bson.D)
	s.filters = append(s.filters, doc)
	if s.err != nil {
		return 0, s.err
	}
	if len(s.counts) == 0 {
		return 0, nil
	}
	count := s.counts[0]
	s.counts = s.counts[1:]
	return count, nil
}
