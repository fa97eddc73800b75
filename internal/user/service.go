// Package user manages admins and game masters and issues bearer tokens to
// masters and players.
package user

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/event"
	"github.com/victornm/ecoquest/internal/identity"
	"github.com/victornm/ecoquest/internal/storage"
)

// Sweeper removes expired games before operations that may observe them.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

type Config struct {
	Store   storage.Store
	Sweeper Sweeper
	// EventBus receives game.deleted for the games removed with a user.
	EventBus *event.Bus
	Token   identity.TokenConfig
	// HashCost is the bcrypt cost of new password hashes. Zero uses the
	// bcrypt default.
	HashCost int
	Now      func() time.Time
}

type Service struct {
	store    storage.Store
	sweeper  Sweeper
	eb       *event.Bus
	token    identity.TokenConfig
	hashCost int
	now      func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:    c.Store,
		sweeper:  c.Sweeper,
		eb:       c.EventBus,
		token:    c.Token,
		hashCost: c.HashCost,
		now:      c.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type MasterSession struct {
	UserID             int64  `json:"userId"`
	Login              string `json:"login"`
	Role               string `json:"role"`
	Status             string `json:"status"`
	AuthorizationToken string `json:"authorizationToken"`
}

// LoginMaster authenticates an admin or a master by login and password.
func (s *Service) LoginMaster(ctx context.Context, login, password string) (*MasterSession, error) {
	switch {
	case login == "":
		return nil, errors.InvalidInput("login is required")
	case password == "":
		return nil, errors.InvalidInput("password is required")
	}

	var sess *MasterSession
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := tx.Users().GetByLogin(ctx, login)
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("user %q not found", login)
		}
		if err != nil {
			return fmt.Errorf("get user %q: %w", login, err)
		}

		rehash, err := identity.VerifyPassword(u.Password, password)
		if stderrors.Is(err, identity.ErrPasswordMismatch) {
			return errors.Unauthorized("wrong password")
		}
		if err != nil {
			return err
		}
		if rehash {
			if err := s.setPassword(ctx, tx, u, password); err != nil {
				return err
			}
			slog.InfoContext(ctx, "user: upgraded legacy password hash", "user_id", u.UserID)
		}

		tok, err := identity.IssueToken(s.token, u.Login, identity.Role(u.Role, u.Status), s.now())
		if err != nil {
			return err
		}

		sess = &MasterSession{
			UserID:             u.UserID,
			Login:              u.Login,
			Role:               u.Role,
			Status:             u.Status,
			AuthorizationToken: tok,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

type PlayerSession struct {
	GameID             int64  `json:"gameId"`
	Login              string `json:"login"`
	Role               string `json:"role"`
	AuthorizationToken string `json:"authorizationToken"`
}

// LoginPlayer issues a player token for an existing game. Players have no
// stored account, any login is accepted.
func (s *Service) LoginPlayer(ctx context.Context, gameID int64, login string) (*PlayerSession, error) {
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}
	if login == "" {
		return nil, errors.InvalidInput("login is required")
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.Games().Get(ctx, gameID)
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("game %d not found", gameID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	tok, err := identity.IssueToken(s.token, login, identity.RolePlayer, s.now())
	if err != nil {
		return nil, err
	}
	return &PlayerSession{
		GameID:             gameID,
		Login:              login,
		Role:               domain.RolePlayer,
		AuthorizationToken: tok,
	}, nil
}

type CreateUserRequest struct {
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	Patronymic string `json:"patronymic"`
	Login      string `json:"login"`
	Password   string `json:"password"`
}

// CreateUser registers a master. New masters are inactive until an admin
// activates them.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (int64, error) {
	u := domain.User{
		LastName:   req.LastName,
		FirstName:  req.FirstName,
		Patronymic: req.Patronymic,
		Login:      req.Login,
		Role:       domain.RoleMaster,
		Status:     domain.StatusInactive,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := validateUser(ctx, tx, &u, req.Password); err != nil {
			return err
		}

		hash, err := identity.HashPassword(req.Password, s.hashCost)
		if err != nil {
			return err
		}
		u.Password = hash
		return tx.Users().Create(ctx, &u)
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "user: created", "user_id", u.UserID, "login", u.Login)
	return u.UserID, nil
}

// DeleteUser removes a user together with the games and game boards they own.
// Deleting an absent user succeeds.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.sweep(ctx); err != nil {
		return err
	}

	var games []domain.Game
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		games, err = tx.Games().ListByOwner(ctx, id)
		if err != nil {
			return err
		}
		return tx.Users().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	if s.eb != nil {
		for _, g := range games {
			s.eb.Publish(ctx, domain.EventGameDeleted{GameID: g.GameID})
		}
	}

	slog.InfoContext(ctx, "user: deleted", "user_id", id, "games", len(games))
	return nil
}

func (s *Service) ListActiveMasters(ctx context.Context) ([]domain.User, error) {
	return s.listMasters(ctx, domain.StatusActive)
}

func (s *Service) ListInactiveMasters(ctx context.Context) ([]domain.User, error) {
	return s.listMasters(ctx, domain.StatusInactive)
}

func (s *Service) listMasters(ctx context.Context, status string) ([]domain.User, error) {
	var us []domain.User
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		us, err = tx.Users().ListByRoleStatus(ctx, domain.RoleMaster, status)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list %s masters: %w", status, err)
	}

	res := make([]domain.User, 0, len(us))
	for _, u := range us {
		u.Password, u.Role, u.Status = "", "", ""
		res = append(res, u)
	}
	return res, nil
}

// ToActiveMaster activates an inactive master.
func (s *Service) ToActiveMaster(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, domain.StatusInactive, domain.StatusActive)
}

// ToInactiveMaster deactivates an active master.
func (s *Service) ToInactiveMaster(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, domain.StatusActive, domain.StatusInactive)
}

func (s *Service) setStatus(ctx context.Context, id int64, from, to string) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := getUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if u.Role != domain.RoleMaster {
			return errors.InvalidInput("user %d is not a master", id)
		}
		if u.Status != from {
			return errors.InvalidInput("user %d is not %s", id, from)
		}

		u.Status = to
		return tx.Users().Update(ctx, u)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "user: status changed", "user_id", id, "status", to)
	return nil
}

type UpdateUserInfoRequest struct {
	UserID     int64  `json:"userId"`
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	Patronymic string `json:"patronymic"`
	Login      string `json:"login"`
	// Password must match the current one. It is not changed.
	Password string `json:"password"`
}

// UpdateUserInfo replaces the names and login of a user.
func (s *Service) UpdateUserInfo(ctx context.Context, req UpdateUserInfoRequest) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		next := domain.User{
			UserID:     req.UserID,
			LastName:   req.LastName,
			FirstName:  req.FirstName,
			Patronymic: req.Patronymic,
			Login:      req.Login,
		}
		if err := validateUser(ctx, tx, &next, req.Password); err != nil {
			return err
		}

		u, err := getUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if err := matchPassword(u, req.Password); err != nil {
			return err
		}

		u.LastName, u.FirstName, u.Patronymic, u.Login = next.LastName, next.FirstName, next.Patronymic, next.Login
		return tx.Users().Update(ctx, u)
	})
}

type UpdatePasswordRequest struct {
	Login       string `json:"login"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdatePassword changes the password of a user who knows the current one.
func (s *Service) UpdatePassword(ctx context.Context, req UpdatePasswordRequest) error {
	switch {
	case req.Login == "":
		return errors.InvalidInput("login is required")
	case req.OldPassword == "":
		return errors.InvalidInput("old password is required")
	case req.NewPassword == "":
		return errors.InvalidInput("new password is required")
	}

	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := getUserByLogin(ctx, tx, req.Login)
		if err != nil {
			return err
		}
		if err := matchPassword(u, req.OldPassword); err != nil {
			return err
		}
		return s.setPassword(ctx, tx, u, req.NewPassword)
	})
}

type ResetPasswordRequest struct {
	Login       string `json:"login"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword overwrites the password of a user without checking the old one.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	switch {
	case req.Login == "":
		return errors.InvalidInput("login is required")
	case req.NewPassword == "":
		return errors.InvalidInput("new password is required")
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := getUserByLogin(ctx, tx, req.Login)
		if err != nil {
			return err
		}
		return s.setPassword(ctx, tx, u, req.NewPassword)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "user: password reset", "login", req.Login)
	return nil
}

// EnsureAdmin creates an active admin with the given credentials unless a user
// with that login already exists.
func (s *Service) EnsureAdmin(ctx context.Context, login, password string) error {
	if login == "" || password == "" {
		return nil
	}

	created := false
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		taken, err := tx.Users().LoginTaken(ctx, login, 0)
		if err != nil {
			return fmt.Errorf("check login %q: %w", login, err)
		}
		if taken {
			return nil
		}

		hash, err := identity.HashPassword(password, s.hashCost)
		if err != nil {
			return err
		}
		created = true
		return tx.Users().Create(ctx, &domain.User{
			LastName:   login,
			FirstName:  login,
			Patronymic: login,
			Login:      login,
			Password:   hash,
			Role:       domain.RoleAdmin,
			Status:     domain.StatusActive,
		})
	})
	if err != nil {
		return fmt.Errorf("user: ensure admin: %w", err)
	}
	if created {
		slog.InfoContext(ctx, "user: admin created", "login", login)
	}
	return nil
}

func (s *Service) sweep(ctx context.Context) error {
	if s.sweeper == nil {
		return nil
	}
	return s.sweeper.Sweep(ctx)
}

func (s *Service) setPassword(ctx context.Context, tx storage.Tx, u *domain.User, password string) error {
	hash, err := identity.HashPassword(password, s.hashCost)
	if err != nil {
		return err
	}
	u.Password = hash
	return tx.Users().Update(ctx, u)
}

func validateUser(ctx context.Context, tx storage.Tx, u *domain.User, password string) error {
	switch {
	case u.LastName == "":
		return errors.InvalidInput("last name is required")
	case u.FirstName == "":
		return errors.InvalidInput("first name is required")
	case u.Patronymic == "":
		return errors.InvalidInput("patronymic is required")
	case u.Login == "":
		return errors.InvalidInput("login is required")
	case password == "":
		return errors.InvalidInput("password is required")
	}

	taken, err := tx.Users().LoginTaken(ctx, u.Login, u.UserID)
	if err != nil {
		return fmt.Errorf("check login %q: %w", u.Login, err)
	}
	if taken {
		return errors.InvalidInput("login %q already exists", u.Login)
	}
	return nil
}

func matchPassword(u *domain.User, password string) error {
	_, err := identity.VerifyPassword(u.Password, password)
	if stderrors.Is(err, identity.ErrPasswordMismatch) {
		return errors.InvalidInput("password does not match")
	}
	return err
}

func getUser(ctx context.Context, tx storage.Tx, id int64) (*domain.User, error) {
	u, err := tx.Users().Get(ctx, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func getUserByLogin(ctx context.Context, tx storage.Tx, login string) (*domain.User, error) {
	u, err := tx.Users().GetByLogin(ctx, login)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.NotFound("user %q not found", login)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", login, err)
	}
	return u, nil
}
