package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

const reasonInUse = "is already in use"

type accountService struct {
	store    ports.SessionStore
	hashCost int
	log      zerolog.Logger
}

// NewAccountService returns an AccountService implementation. hashCost is
// the bcrypt cost used for every new password hash.
func NewAccountService(store ports.SessionStore, hashCost int, log zerolog.Logger) ports.AccountService {
	return &accountService{store: store, hashCost: hashCost, log: log}
}

// CreateUser registers a user with role user. Every field problem, syntactic
// or duplicate, is reported in one ValidationErrors.
func (s *accountService) CreateUser(ctx context.Context, rawUsername, rawEmail, rawPassword domain.Raw) (domain.UserProfile, error) {
	errs := make(domain.ValidationErrors)

	username, uerr := domain.ParseAndValidateUsername(rawUsername)
	email, eerr := domain.ParseAndValidateEmailAddress(rawEmail)
	password, perr := domain.ParseAndValidatePassword(rawPassword)
	if err := errs.AddAll(uerr, eerr, perr); err != nil {
		return domain.UserProfile{}, fmt.Errorf("create user: %w", err)
	}

	if err := s.checkAvailability(ctx, errs, username, uerr == nil, email, eerr == nil, nil); err != nil {
		return domain.UserProfile{}, fmt.Errorf("create user: %w", err)
	}
	if err := errs.Err(); err != nil {
		return domain.UserProfile{}, err
	}

	hash, err := domain.HashPassword(password, s.hashCost)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("create user: %w", err)
	}

	id, err := s.store.CreateUserProfile(ctx, username, email, domain.RoleUser, hash)
	if err != nil {
		if s.store.IsUniqueConstraintViolated(err) {
			return domain.UserProfile{}, s.conflict(ctx, username, email, nil)
		}
		return domain.UserProfile{}, fmt.Errorf("create user: %w", err)
	}
	metrics.UsersRegisteredTotal.Inc()

	s.log.Info().Str("user_id", id.String()).Str("username", username.String()).Msg("user created")

	return domain.UserProfile{
		UserID:       id,
		Username:     username,
		EmailAddress: email,
		UserRole:     domain.RoleUser,
	}, nil
}

// UpdateProfile replaces username and email of the session owner.
func (s *accountService) UpdateProfile(ctx context.Context, rawToken, rawUsername, rawEmail domain.Raw) error {
	sessionToken, err := domain.ParseSessionToken(rawToken)
	if err != nil {
		return domain.ErrInvalidSession
	}

	errs := make(domain.ValidationErrors)
	username, uerr := domain.ParseAndValidateUsername(rawUsername)
	email, eerr := domain.ParseAndValidateEmailAddress(rawEmail)
	if err := errs.AddAll(uerr, eerr); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if err := s.checkAvailability(ctx, errs, username, uerr == nil, email, eerr == nil, &sessionToken); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if err := errs.Err(); err != nil {
		return err
	}

	update := ports.ProfileUpdate{Username: username, EmailAddress: email}
	updated, err := s.store.UpdateUserProfile(ctx, update, sessionToken)
	if err != nil {
		if s.store.IsUniqueConstraintViolated(err) {
			return s.conflict(ctx, username, email, &sessionToken)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if !updated {
		return domain.ErrInvalidSession
	}
	return nil
}

// UpdatePassword checks the current password before the new one is held to
// the policy, so a stranger with a stolen cookie learns nothing about it.
func (s *accountService) UpdatePassword(ctx context.Context, rawToken, rawCurrent, rawNext domain.Raw) error {
	sessionToken, err := domain.ParseSessionToken(rawToken)
	if err != nil {
		return domain.ErrInvalidSession
	}

	errs := make(domain.ValidationErrors)
	current, cerr := domain.ParsePassword(rawCurrent)
	next, nerr := domain.ParsePassword(rawNext)
	if err := errs.AddAs(domain.FieldCurrentPassword, cerr); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := errs.AddAs(domain.FieldNewPassword, nerr); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := errs.Err(); err != nil {
		return err
	}

	if err := s.verifyPassword(ctx, sessionToken, current); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := next.Validate(); err != nil {
		if other := errs.AddAs(domain.FieldNewPassword, err); other != nil {
			return fmt.Errorf("update password: %w", other)
		}
		return errs
	}

	hash, err := domain.HashPassword(next, s.hashCost)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	updated, err := s.store.UpdatePasswordHash(ctx, hash, sessionToken)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if !updated {
		return domain.ErrInvalidSession
	}
	return nil
}

// DeleteUser removes the session owner after re-checking their password.
func (s *accountService) DeleteUser(ctx context.Context, rawToken, rawPassword domain.Raw) error {
	sessionToken, err := domain.ParseSessionToken(rawToken)
	if err != nil {
		return domain.ErrInvalidSession
	}

	password, err := domain.ParsePassword(rawPassword)
	if err != nil {
		return collect(err)
	}

	if err := s.verifyPassword(ctx, sessionToken, password); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	deleted, err := s.store.DeleteUserProfile(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return domain.ErrInvalidSession
	}

	s.log.Info().Msg("user deleted")
	return nil
}

// UpdateUserRole lets an admin change anyone's role.
func (s *accountService) UpdateUserRole(ctx context.Context, rawToken, rawUserID, rawRole domain.Raw) error {
	sessionToken, err := domain.ParseSessionToken(rawToken)
	if err != nil {
		return domain.ErrInvalidSession
	}

	caller, found, err := s.store.FetchUserIdentityFromSessionToken(ctx, sessionToken)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if !found {
		return domain.ErrInvalidSession
	}
	if !caller.IsAdmin() {
		return domain.ErrNotAdmin
	}

	target, ierr := domain.ParseAndValidateUserID(rawUserID)
	role, rerr := domain.ParseUserRole(rawRole)
	if err := collect(ierr, rerr); err != nil {
		return err
	}

	updated, err := s.store.UpdateUserRole(ctx, target, role)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if !updated {
		return domain.ErrUserNotFound
	}

	s.log.Info().
		Str("admin_id", caller.UserID.String()).
		Str("user_id", target.String()).
		Str("role", role.String()).
		Msg("user role updated")
	return nil
}

// verifyPassword matches password against the credential of the session
// owner: ErrInvalidSession when there is no live session, ErrIncorrectPassword
// on mismatch.
func (s *accountService) verifyPassword(ctx context.Context, sessionToken domain.SessionToken, password domain.Password) error {
	hash, found, err := s.store.FetchPasswordHashFromSessionToken(ctx, sessionToken)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrInvalidSession
	}

	ok, err := hash.Matches(password)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrIncorrectPassword
	}
	return nil
}

// checkAvailability folds store-side uniqueness of the syntactically valid
// fields into errs.
func (s *accountService) checkAvailability(
	ctx context.Context,
	errs domain.ValidationErrors,
	username domain.Username, checkUsername bool,
	email domain.EmailAddress, checkEmail bool,
	excluding *domain.SessionToken,
) error {
	if checkUsername {
		inUse, err := s.store.IsUsernameInUse(ctx, username, excluding)
		if err != nil {
			return err
		}
		if inUse {
			errs.Set(domain.FieldUsername, reasonInUse)
		}
	}
	if checkEmail {
		inUse, err := s.store.IsEmailAddressInUse(ctx, email, excluding)
		if err != nil {
			return err
		}
		if inUse {
			errs.Set(domain.FieldEmailAddress, reasonInUse)
		}
	}
	return nil
}

// conflict turns a duplicate-key failure from a write that raced another
// registration into field errors.
func (s *accountService) conflict(ctx context.Context, username domain.Username, email domain.EmailAddress, excluding *domain.SessionToken) error {
	errs := make(domain.ValidationErrors)
	if err := s.checkAvailability(ctx, errs, username, true, email, true, excluding); err != nil {
		return err
	}
	if len(errs) == 0 {
		errs.Set(domain.FieldUsername, reasonInUse)
	}
	return errs
}
