// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/dynarank/internal/config"
	"github.com/tomtom215/dynarank/internal/models"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

type account struct {
	hash []byte
	role string
}

// UserStore checks passwords of the configured admin API accounts.
type UserStore struct {
	accounts map[string]account
	// dummy is compared against when the user is unknown so that both
	// cases take the same time.
	dummy []byte
}

// NewUserStore hashes the passwords of cfg's accounts with the given bcrypt cost.
func NewUserStore(cfg config.SecurityConfig, cost int) (*UserStore, error) {
	s := &UserStore{accounts: make(map[string]account)}

	add := func(username, password, role string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return fmt.Errorf("hash password of %s: %w", username, err)
		}
		s.accounts[username] = account{hash: hash, role: role}
		return nil
	}

	if cfg.AdminPassword != "" {
		if err := add(cfg.AdminUsername, cfg.AdminPassword, models.RoleAdmin); err != nil {
			return nil, err
		}
	}
	for _, u := range cfg.Users {
		if !models.IsValidRole(u.Role) {
			return nil, fmt.Errorf("user %s has unknown role %q", u.Username, u.Role)
		}
		if err := add(u.Username, u.Password, u.Role); err != nil {
			return nil, err
		}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("dynarank-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	s.dummy = dummy
	return s, nil
}

// Authenticate returns the role of username when password matches.
func (s *UserStore) Authenticate(username, password string) (string, error) {
	acc, ok := s.accounts[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return acc.role, nil
}

// Len returns the number of accounts.
func (s *UserStore) Len() int {
	return len(s.accounts)
}
