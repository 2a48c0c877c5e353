/*
 * Copyright 2026 The Textsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package auth verifies the tokens clients present when they join a document
// or call the document API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/lexdesk/textsync/pkg/cache"
	pkgerrors "github.com/lexdesk/textsync/pkg/errors"
)

const (
	// verifiedCacheSize is the number of verified tokens remembered.
	verifiedCacheSize = 1024

	// verifiedCacheTTL bounds how long a verified token skips parsing.
	verifiedCacheTTL = time.Minute
)

var (
	// ErrUnexpectedSigningMethod is returned when the signing method is unexpected.
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")

	// ErrUnauthenticated is returned when a token is missing or invalid.
	ErrUnauthenticated = pkgerrors.Unauthenticated("unauthenticated").WithCode("unauthenticated")
)

// UserClaims is a JWT claims struct for a user. The subject is the user ID.
type UserClaims struct {
	jwt.StandardClaims

	Username string `json:"username"`
}

// User is the identity a verified token carries.
type User struct {
	ID   string
	Name string
}

// verifiedToken is a token that passed verification.
type verifiedToken struct {
	user      User
	expiresAt int64
}

// TokenManager manages JWT tokens.
type TokenManager struct {
	secretKey     string
	tokenDuration time.Duration
	verified      *cache.LRUWithExpires[string, verifiedToken]
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(secretKey string, tokenDuration time.Duration) *TokenManager {
	return &TokenManager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
		verified:      cache.NewLRUWithExpires[string, verifiedToken](verifiedCacheSize, verifiedCacheTTL),
	}
}

// CacheStats returns the statistics of the verified token cache.
func (m *TokenManager) CacheStats() *cache.Stats {
	return m.verified.Stats()
}

// Generate generates a new token for the user.
func (m *TokenManager) Generate(userID, username string) (string, error) {
	claims := UserClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(m.tokenDuration).Unix(),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signedToken, nil
}

// Verify verifies the given token and returns the user it was issued to.
func (m *TokenManager) Verify(token string) (User, error) {
	if token == "" {
		return User{}, fmt.Errorf("missing token: %w", ErrUnauthenticated)
	}

	if entry, ok := m.verified.Get(token); ok {
		if entry.expiresAt == 0 || time.Now().Unix() < entry.expiresAt {
			return entry.user, nil
		}
		m.verified.Remove(token)
	}

	claims := &UserClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, fmt.Errorf("%s: %w", token.Method.Alg(), ErrUnexpectedSigningMethod)
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return User{}, fmt.Errorf("parse token: %s: %w", err.Error(), ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("token without subject: %w", ErrUnauthenticated)
	}

	name := claims.Username
	if name == "" {
		name = claims.Subject
	}
	user := User{ID: claims.Subject, Name: name}
	m.verified.Add(token, verifiedToken{user: user, expiresAt: claims.ExpiresAt})
	return user, nil
}
