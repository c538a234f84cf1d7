// Package auth manages admin accounts and bearer tokens. Accounts live in
// every backend's users table; authentication reads from the control backend.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"syncfabric/internal/platform/config"
	perr "syncfabric/internal/platform/errors"
	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
)

// Defaults for the seeded demo admin. The fixed id keeps re-seeding across
// backends idempotent.
const (
	seedAdminUser = "admin"
	seedAdminPass = "admin123"
	seedAdminID   = "00000000-0000-0000-0000-000000000001"
)

// Engines is the slice of the registry the service needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
	Control(ctx context.Context) (store.Handle, error)
	ControlTag() store.Tag
}

// Service authenticates admins and issues HS256 bearer tokens
type Service struct {
	Engines          Engines
	Log              *logger.Logger
	secret           []byte
	registrationCode string
}

func New(engines Engines, root config.Conf, log *logger.Logger) *Service {
	if engines == nil {
		panic("auth.Service requires engines")
	}
	if log == nil {
		log = logger.Named("auth")
	}
	return &Service{
		Engines:          engines,
		Log:              log,
		secret:           []byte(root.MayString("APP_SECRET_KEY", "change-me")),
		registrationCode: root.MayString("ADMIN_REGISTRATION_CODE", "aaa"),
	}
}

// Login verifies credentials against the control backend and returns an
// access token
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return "", err
	}
	row, err := store.OneMap(ctx, ctl,
		`SELECT username, password_hash, role FROM users WHERE username=?`, username)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return "", perr.Unauthorizedf("bad credentials")
		}
		return "", err
	}
	hash, _ := row["password_hash"].(string)
	if !VerifyPassword(password, hash) {
		return "", perr.Unauthorizedf("bad credentials")
	}
	role, _ := row["role"].(string)
	return s.createAccessToken(username, strings.EqualFold(role, "admin"))
}

// Register creates a new admin account on the control backend. The account
// row carries the control tag so triggers replicate it outward.
func (s *Service) Register(ctx context.Context, username, password, registrationCode string) (string, error) {
	if registrationCode != s.registrationCode {
		return "", perr.InvalidArgf("registration code is not valid")
	}
	ctl, err := s.Engines.Control(ctx)
	if err != nil {
		return "", err
	}
	err = ctl.Tx(ctx, func(q store.RowQuerier) error {
		exists, err := store.Exists(ctx, q, `SELECT 1 FROM users WHERE username=?`, username)
		if err != nil {
			return err
		}
		if exists {
			return perr.Conflictf("username %q already exists", username)
		}
		hash, err := HashPassword(password)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `
			INSERT INTO users(user_id, username, password_hash, role, updated_by_db, row_version)
			VALUES (?, ?, ?, 'admin', ?, 1)`,
			uuid.NewString(), username, hash, s.Engines.ControlTag().Wire())
		return err
	})
	if err != nil {
		// two concurrent registers can both pass the exists check
		if perr.IsDuplicateKey(err) {
			return "", perr.Conflictf("username %q already exists", username)
		}
		return "", err
	}
	return s.createAccessToken(username, true)
}

// Parse implements the HTTP middleware auth seam: extract and validate the
// bearer token
func (s *Service) Parse(r *http.Request) (string, bool, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false, perr.Unauthorizedf("not authenticated")
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", false, perr.Unauthorizedf("not authenticated")
	}
	claims, err := s.decodeToken(strings.TrimSpace(token))
	if err != nil {
		return "", false, err
	}
	return claims.Subject, claims.IsAdmin, nil
}

// EnsureAdminSeeded inserts the default admin into every backend that is
// missing it. A backend that is down or fails to seed is skipped; the next
// startup retries. Local inserts are stamped with the backend's own tag so
// its trigger logs and replicates the row.
func (s *Service) EnsureAdminSeeded(ctx context.Context) {
	hash, err := HashPassword(seedAdminPass)
	if err != nil {
		s.Log.Error().Err(err).Msg("admin seed hash failed")
		return
	}
	for _, tag := range store.AllTags() {
		h, err := s.Engines.Engine(ctx, tag)
		if err != nil {
			s.Log.Warn().Err(err).Str("backend", string(tag)).Msg("admin seed skipped, backend unavailable")
			continue
		}
		err = h.Tx(ctx, func(q store.RowQuerier) error {
			exists, err := store.Exists(ctx, q, `SELECT 1 FROM users WHERE username=?`, seedAdminUser)
			if err != nil || exists {
				return err
			}
			_, err = q.Exec(ctx, `
				INSERT INTO users(user_id, username, password_hash, role, updated_by_db, row_version)
				VALUES (?, ?, ?, 'admin', ?, 1)`,
				seedAdminID, seedAdminUser, hash, tag.Wire())
			return err
		})
		if err != nil {
			s.Log.Warn().Err(err).Str("backend", string(tag)).Msg("admin seed failed")
		}
	}
}
