/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"panelplay/internal/domain"
	"panelplay/internal/store"
)

// ErrInvalidCredentials is returned on sign-in with a wrong email or password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the account persistence the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// Service manages sign-up, password sign-in and session tokens.
type Service struct {
	secret string
	users  UserStore
	ttl    time.Duration
}

// NewService creates the auth collaborator. ttl <= 0 defaults to 24h.
func NewService(secret string, users UserStore, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{secret: secret, users: users, ttl: ttl}
}

// SignUp registers a new creator account.
func (s *Service) SignUp(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, errors.New("a valid email is required")
	}
	if len(password) < 8 {
		return domain.User{}, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.users.CreateUser(ctx, email, string(hash))
}

// SignIn checks the password and mints a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", domain.User{}, ErrInvalidCredentials
	}
	tok, err := SignToken(s.secret, u.ID, time.Now().Add(s.ttl))
	if err != nil {
		return "", domain.User{}, fmt.Errorf("sign token: %w", err)
	}
	return tok, u, nil
}

// Session resolves a token to its user. Any failure means "no session".
func (s *Service) Session(ctx context.Context, token string) (domain.User, bool) {
	sub, err := VerifyToken(s.secret, token)
	if err != nil {
		return domain.User{}, false
	}
	u, err := s.users.GetUser(ctx, sub)
	if err != nil {
		return domain.User{}, false
	}
	return u, true
}
