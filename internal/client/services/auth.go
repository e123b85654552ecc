package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/profile"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/dmitrijs2005/fieldcrm/internal/validation"
	validatorv10 "github.com/go-playground/validator/v10"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server, cache the identity and the session.
//   - Logout: end the session remotely when possible and always locally.
//   - Profile: ask the server who is logged in and refresh the cached identity.
//   - CachedProfile / IsLoggedIn: local answers, no network.
//   - Restore: load a saved session into the API client.
type AuthService interface {
	Login(ctx context.Context, login, password string) (models.MasterProfile, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (models.MasterProfile, error)
	CachedProfile(ctx context.Context) (models.MasterProfile, error)
	IsLoggedIn(ctx context.Context) bool
	Restore(ctx context.Context) (bool, error)
}

type credentials struct {
	Login    string `json:"login" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

type authService struct {
	api      client.Client
	profiles profile.Repository
	log      logging.Logger
	validate *validatorv10.Validate
	lifetime time.Duration
	nowFunc  func() time.Time
}

// NewAuthService builds an AuthService. lifetime is the assumed session
// length when the server does not say.
func NewAuthService(api client.Client, profiles profile.Repository, log logging.Logger, lifetime time.Duration) AuthService {
	return &authService{
		api:      api,
		profiles: profiles,
		log:      log,
		validate: validation.New(),
		lifetime: lifetime,
		nowFunc:  time.Now,
	}
}

func (a *authService) Login(ctx context.Context, login, password string) (models.MasterProfile, error) {
	if err := a.validate.Struct(credentials{Login: login, Password: password}); err != nil {
		return models.MasterProfile{}, client.NewValidationError("invalid credentials", validation.FieldErrors(err))
	}

	p, err := a.api.Login(ctx, login, password)
	if err != nil {
		return models.MasterProfile{}, fmt.Errorf("login error: %w", err)
	}
	if p.Role != models.RoleMaster {
		a.api.ClearSession()
		return models.MasterProfile{}, fmt.Errorf("login error: role %q: %w", p.Role, client.ErrUnauthorized)
	}

	p = a.stamp(p)
	if err := a.profiles.Save(ctx, p); err != nil {
		a.log.Warn(ctx, "failed to cache profile", "error", err)
	}
	if err := a.profiles.SaveSession(ctx, a.api.Session()); err != nil {
		a.log.Warn(ctx, "failed to save session", "error", err)
	}
	return p, nil
}

// stamp sets SavedAt and ExpiresAt from the current session.
func (a *authService) stamp(p models.MasterProfile) models.MasterProfile {
	now := a.nowFunc().UTC()
	p.SavedAt = now
	p.ExpiresAt = a.api.SessionExpiry()
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = now.Add(a.lifetime)
	}
	return p
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		// the local session is gone either way
		a.log.Warn(ctx, "remote logout failed", "error", err)
	}
	var errs []error
	if err := a.profiles.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear profile: %w", err))
	}
	if err := a.profiles.ClearSession(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}
	return errors.Join(errs...)
}

func (a *authService) Profile(ctx context.Context) (models.MasterProfile, error) {
	p, err := a.api.Profile(ctx)
	if err != nil {
		return models.MasterProfile{}, err
	}
	p = a.stamp(p)
	if p.Role == models.RoleMaster {
		if err := a.profiles.Save(ctx, p); err != nil {
			a.log.Warn(ctx, "failed to cache profile", "error", err)
		}
	}
	return p, nil
}

func (a *authService) CachedProfile(ctx context.Context) (models.MasterProfile, error) {
	return a.profiles.Get(ctx)
}

func (a *authService) IsLoggedIn(ctx context.Context) bool {
	p, err := a.profiles.Get(ctx)
	return err == nil && p.ID != ""
}

func (a *authService) Restore(ctx context.Context) (bool, error) {
	s, err := a.profiles.LoadSession(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if s.Empty() {
		return false, nil
	}
	a.api.RestoreSession(s)
	return true, nil
}
