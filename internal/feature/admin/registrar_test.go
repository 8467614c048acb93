package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"church_app_backend/internal/domain"
)

func TestEnsureAdminsPromotesOnlyNonAdmins(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	fake := &fakeProfiles{profiles: map[string]domain.UserProfile{
		"uid-1": {ID: "uid-1", Role: domain.RoleUser},
		"uid-2": {ID: "uid-2", Role: domain.RoleAdmin},
	}}

	registrar := NewRegistrar(fake, logrus.NewEntry(hookLogger))

	result, err := registrar.EnsureAdmins(context.Background(), []string{"uid-1", " uid-2 ", "uid-3", "uid-1", ""})
	if err != nil {
		t.Fatalf("EnsureAdmins returned error: %v", err)
	}

	if len(fake.promoteCalls) != 1 || fake.promoteCalls[0] != "uid-1" {
		t.Fatalf("expected only uid-1 to be promoted, got %v", fake.promoteCalls)
	}
	if len(result.Promoted) != 1 || len(result.Already) != 1 || len(result.Missing) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Missing[0] != "uid-3" {
		t.Fatalf("expected uid-3 to be missing, got %v", result.Missing)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != "admin_bootstrap" {
		t.Fatalf("expected admin_bootstrap log entry, got %v", entry)
	}
	if entry.Data["promoted"] != 1 || entry.Data["missing"] != 1 {
		t.Fatalf("unexpected log counts: %v", entry.Data)
	}
}

func TestEnsureAdminsTreatsConcurrentRemovalAsMissing(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	fake := &fakeProfiles{
		profiles:   map[string]domain.UserProfile{"uid-1": {ID: "uid-1", Role: domain.RoleUser}},
		promoteErr: domain.NewNotFoundError("user profile", "uid-1"),
	}

	result, err := NewRegistrar(fake, logrus.NewEntry(hookLogger)).EnsureAdmins(context.Background(), []string{"uid-1"})
	if err != nil {
		t.Fatalf("EnsureAdmins returned error: %v", err)
	}
	if len(result.Missing) != 1 {
		t.Fatalf("expected uid-1 to be reported missing, got %+v", result)
	}
}

func TestEnsureAdminsPropagatesStoreErrors(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	expected := errors.New("mongo down")

	registrar := NewRegistrar(&fakeProfiles{getErr: expected}, logrus.NewEntry(hookLogger))
	if _, err := registrar.EnsureAdmins(context.Background(), []string{"uid-1"}); !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}

	registrar = NewRegistrar(&fakeProfiles{
		profiles:   map[string]domain.UserProfile{"uid-1": {ID: "uid-1", Role: domain.RoleUser}},
		promoteErr: expected,
	}, logrus.NewEntry(hookLogger))
	if _, err := registrar.EnsureAdmins(context.Background(), []string{"uid-1"}); !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestEnsureAdminsValidatesInputs(t *testing.T) {
	registrar := NewRegistrar(&fakeProfiles{}, nil)

	if _, err := registrar.EnsureAdmins(nil, []string{"uid"}); err == nil {
		t.Fatalf("expected error for nil context")
	}

	var nilRegistrar *Registrar
	if _, err := nilRegistrar.EnsureAdmins(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil registrar")
	}
}

type fakeProfiles struct {
	profiles     map[string]domain.UserProfile
	getErr       error
	promoteErr   error
	promoteCalls []string
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (domain.UserProfile, bool, error) {
	if f.getErr != nil {
		return domain.UserProfile{}, false, f.getErr
	}
	p, ok := f.profiles[id]
	return p, ok, nil
}

func (f *fakeProfiles) PromoteToAdmin(_ context.Context, id string) (domain.Promotion, error) {
	f.promoteCalls = append(f.promoteCalls, id)
	if f.promoteErr != nil {
		return domain.Promotion{}, f.promoteErr
	}
	p := f.profiles[id]
	return domain.Promotion{ID: id, PreviousRole: p.Role}, nil
}
