package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"church_app_backend/internal/domain"
	"church_app_backend/internal/logging"
)

const (
	exitFailure  = 1
	exitNotFound = 2

	usage = `usage: usersctl <command> [flags]

commands:
  create   -id ID -email EMAIL -name NAME [-phone PHONE] [-role user|admin]
  import   -file users.json
  promote  -id ID
  get      -id ID`
)

var errProfileNotFound = errors.New("profile not found")

type profileStore interface {
	CreateProfile(ctx context.Context, id string, fields domain.ProfileFields) (domain.UserProfile, error)
	PromoteToAdmin(ctx context.Context, id string) (domain.Promotion, error)
	GetByID(ctx context.Context, id string) (domain.UserProfile, bool, error)
}

type app struct {
	profiles profileStore
	stdout   io.Writer
	stderr   io.Writer
}

// importRecord is one entry of an import file.
type importRecord struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type importResult struct {
	Created  int                  `json:"created"`
	Profiles []domain.UserProfile `json:"profiles"`
}

type lookupResult struct {
	Found   bool                `json:"found"`
	ID      string              `json:"id"`
	Profile *domain.UserProfile `json:"profile,omitempty"`
}

func checkCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("a command is required")
	}
	switch args[0] {
	case "create", "import", "promote", "get":
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if err := checkCommand(args); err != nil {
		return err
	}

	switch args[0] {
	case "create":
		return a.create(ctx, args[1:])
	case "import":
		return a.importFile(ctx, args[1:])
	case "promote":
		return a.promote(ctx, args[1:])
	default:
		return a.get(ctx, args[1:])
	}
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := a.flagSet("create")
	id := fs.String("id", "", "identity provider user id")
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	role := fs.String("role", string(domain.RoleUser), "role (user or admin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*id) == "" {
		return errors.New("-id is required")
	}
	parsedRole, err := domain.ParseRole(*role)
	if err != nil {
		return err
	}

	created, err := a.profiles.CreateProfile(ctx, *id, domain.ProfileFields{
		Email:    *email,
		FullName: *name,
		Role:     parsedRole,
		Phone:    *phone,
	})
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	return a.print(created)
}

// importFile creates every record in order and stops at the first failure.
// Records written before the failure stay written.
func (a *app) importFile(ctx context.Context, args []string) error {
	fs := a.flagSet("import")
	path := fs.String("file", "", "JSON file holding an array of profiles")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*path) == "" {
		return errors.New("-file is required")
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var records []importRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("decode import file: %w", err)
	}

	result := importResult{Profiles: make([]domain.UserProfile, 0, len(records))}
	for i, rec := range records {
		role, err := domain.ParseRole(rec.Role)
		if err != nil {
			return fmt.Errorf("record %d (%s): %w", i, rec.ID, err)
		}

		created, err := a.profiles.CreateProfile(ctx, rec.ID, domain.ProfileFields{
			Email:    rec.Email,
			FullName: rec.FullName,
			Role:     role,
			Phone:    rec.Phone,
		})
		if err != nil {
			_ = a.print(result)
			return fmt.Errorf("record %d (%s): %w", i, rec.ID, err)
		}

		result.Created++
		result.Profiles = append(result.Profiles, created)
	}

	logging.WithContext(logging.Context{Event: "usersctl_import"}).
		WithField("created", result.Created).
		Info("imported user profiles")

	return a.print(result)
}

func (a *app) promote(ctx context.Context, args []string) error {
	fs := a.flagSet("promote")
	id := fs.String("id", "", "profile id to promote")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("-id is required")
	}

	promotion, err := a.profiles.PromoteToAdmin(ctx, *id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", errProfileNotFound, *id)
	}
	if err != nil {
		return fmt.Errorf("promote profile: %w", err)
	}

	logging.WithContext(logging.Context{UserID: promotion.ID, Event: "usersctl_promote"}).
		WithField("email", promotion.Email).
		Info("promoted user profile")

	return a.print(promotion)
}

func (a *app) get(ctx context.Context, args []string) error {
	fs := a.flagSet("get")
	id := fs.String("id", "", "profile id to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("-id is required")
	}

	found, ok, err := a.profiles.GetByID(ctx, *id)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if !ok {
		_ = a.print(lookupResult{Found: false, ID: *id})
		return fmt.Errorf("%w: %s", errProfileNotFound, *id)
	}

	return a.print(lookupResult{Found: true, ID: found.ID, Profile: &found})
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
