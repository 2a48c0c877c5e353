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

// Package types provides the types exchanged between textsync clients and
// the server, over the sync protocol and the admin API.
package types

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
)

// ErrInvalidID is returned when the given ID is not a valid xid.
var ErrInvalidID = errors.New("invalid ID")

// ID identifies connections, subscriptions and operations generated by the
// server.
type ID string

// NewID creates a new unique ID.
func NewID() ID {
	return ID(xid.New().String())
}

// String returns a string representation of this ID.
func (id ID) String() string {
	return string(id)
}

// Validate returns error if this ID is invalid.
func (id ID) Validate() error {
	if _, err := xid.FromString(id.String()); err != nil {
		return fmt.Errorf("%s: %w", id, ErrInvalidID)
	}
	return nil
}
