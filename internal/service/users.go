package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/remote"
)

// Registration is the input for creating an account.
type Registration struct {
	Email      string `json:"email" validate:"required,useremail"`
	FirstName  string `json:"first_name" validate:"required,personname"`
	LastName   string `json:"last_name" validate:"required,personname"`
	Phone      string `json:"phone" validate:"required,phone"`
	Credential string `json:"password" validate:"required,min=6"`
}

func (r Registration) user(id string, role model.Role) *model.User {
	return &model.User{
		ID:         id,
		Email:      model.NormalizeEmail(r.Email),
		FirstName:  strings.TrimSpace(r.FirstName),
		LastName:   strings.TrimSpace(r.LastName),
		Phone:      strings.TrimSpace(r.Phone),
		Credential: r.Credential,
		Role:       role,
	}
}

// Login checks the local directory first and falls back to the remote store
// for a bounded time. Unknown email, wrong credential and an unreachable
// store all yield ErrUserNotFound.
func (s *BookingService) Login(ctx context.Context, email, credential string) (*model.User, error) {
	u, ok := s.localUser(email)
	if !ok {
		if u = s.fetchUser(ctx, email); u == nil {
			return nil, ErrUserNotFound
		}
	}
	if !u.CheckCredential(credential) {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// LoginAsGuest returns a session user that is never stored.
func (s *BookingService) LoginAsGuest() *model.User {
	return &model.User{ID: s.newID(), FirstName: "Guest", Role: model.RoleGuest}
}

// RegisterUser creates a regular account.
func (s *BookingService) RegisterUser(ctx context.Context, r Registration) (*model.User, error) {
	return s.createUser(ctx, r, model.RoleRegular)
}

// AddUser creates an account with any non-guest role.
func (s *BookingService) AddUser(ctx context.Context, r Registration, role model.Role) (*model.User, error) {
	if role == model.RoleGuest {
		return nil, invalid("role", "guest accounts cannot be stored")
	}
	return s.createUser(ctx, r, role)
}

func (s *BookingService) createUser(ctx context.Context, r Registration, role model.Role) (*model.User, error) {
	if err := check(r); err != nil {
		return nil, err
	}
	if s.IsEmailRegistered(r.Email) || s.fetchUser(ctx, r.Email) != nil {
		return nil, ErrEmailTaken
	}

	u := r.user(s.newID(), role)
	var f *remote.Future[bool]
	err := s.dir.Update(func(tx *directory.Tx) error {
		if err := tx.InsertUser(u); err != nil {
			return err
		}
		f = s.store.SaveUserIfAbsent(ctx, u)
		track(ctx, s, "save_user", u.Email, f)
		return nil
	})
	if errors.Is(err, directory.ErrExists) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	if s.store.Initialized() {
		l := s.logger(ctx).WithField("email", u.Email)
		f.Then(func(created bool, err error) {
			if err == nil && !created {
				l.Warn("email already stored remotely, remote account kept")
			}
		})
	}
	s.logger(ctx).WithFields(logrus.Fields{"email": u.Email, "role": u.Role}).Info("user registered")
	return u, nil
}

// IsEmailRegistered consults only the local directory.
func (s *BookingService) IsEmailRegistered(email string) bool {
	_, ok := s.localUser(email)
	return ok
}

// AllUsers merges the remote user list into the directory when the store is
// reachable, then returns every stored account.
func (s *BookingService) AllUsers(ctx context.Context) []*model.User {
	if s.store.Initialized() {
		recs, err := s.store.Users(ctx).AwaitTimeout(s.syncTimeout)
		if err != nil {
			s.logger(ctx).WithError(err).Warn("listing remote users failed, serving local directory")
		} else {
			s.mergeUsers(recs)
		}
	}
	var out []*model.User
	s.dir.View(func(r directory.Reader) {
		for _, u := range r.Users() {
			if !u.IsGuest() {
				out = append(out, u)
			}
		}
	})
	return out
}

// DeleteUser removes the account. Its tickets stay valid without an owner.
func (s *BookingService) DeleteUser(ctx context.Context, email string) bool {
	var ok bool
	_ = s.dir.Update(func(tx *directory.Tx) error {
		if _, ok = tx.DeleteUser(email); ok {
			track(ctx, s, "delete_user", email, s.store.DeleteUser(ctx, email))
		}
		return nil
	})
	return ok
}

// UserByID resolves a session subject to its account.
func (s *BookingService) UserByID(id string) (*model.User, bool) {
	var (
		u  *model.User
		ok bool
	)
	s.dir.View(func(r directory.Reader) { u, ok = r.UserByID(id) })
	return u, ok
}

func (s *BookingService) localUser(email string) (*model.User, bool) {
	var (
		u  *model.User
		ok bool
	)
	s.dir.View(func(r directory.Reader) { u, ok = r.User(email) })
	return u, ok
}

// fetchUser asks the remote store for email and caches a hit locally. It
// returns nil on a miss, an error, a timeout or when offline.
func (s *BookingService) fetchUser(ctx context.Context, email string) *model.User {
	if !s.store.Initialized() {
		return nil
	}
	rec, err := s.store.FindUser(ctx, email).AwaitTimeout(s.syncTimeout)
	if err != nil {
		s.logger(ctx).WithError(err).WithField("email", email).Warn("remote user lookup failed")
		return nil
	}
	if rec == nil {
		return nil
	}
	s.mergeUsers([]remote.UserRecord{*rec})
	u, _ := s.localUser(email)
	return u
}

func (s *BookingService) mergeUsers(recs []remote.UserRecord) {
	_ = s.dir.Update(func(tx *directory.Tx) error {
		for _, rec := range recs {
			u := rec.User()
			if u.IsGuest() {
				continue
			}
			// local wins on both email and id
			_ = tx.InsertUser(u)
		}
		return nil
	})
}
