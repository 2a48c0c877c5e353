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

// Package errors provides errors that carry a status and a protocol code so
// that the sync protocol and the admin API can report failures uniformly.
package errors

import "fmt"

// StatusCode classifies an error the way the protocol reports it.
type StatusCode int

const (
	// ErrCodeInvalidArgument indicates that the client sent a malformed or
	// out-of-range request, such as an invalid operation.
	ErrCodeInvalidArgument StatusCode = 3

	// ErrCodeNotFound indicates that the requested document does not exist.
	ErrCodeNotFound StatusCode = 5

	// ErrCodeAlreadyExists indicates that the entity already exists.
	ErrCodeAlreadyExists StatusCode = 6

	// ErrCodePermissionDenied indicates that the caller may not perform the
	// request, e.g. editing a document locked by someone else.
	ErrCodePermissionDenied StatusCode = 7

	// ErrCodeFailedPrecondition indicates that the document is not in a
	// state required for the request, such as a stale base version.
	ErrCodeFailedPrecondition StatusCode = 9

	// ErrCodeInternal indicates that an invariant of the server is broken.
	ErrCodeInternal StatusCode = 13

	// ErrCodeUnavailable indicates that a collaborator, usually the
	// transport, could not be reached.
	ErrCodeUnavailable StatusCode = 14

	// ErrCodeUnauthenticated indicates missing or invalid credentials.
	ErrCodeUnauthenticated StatusCode = 16
)

// String returns the string representation of the status.
func (c StatusCode) String() string {
	switch c {
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeAlreadyExists:
		return "already_exists"
	case ErrCodePermissionDenied:
		return "permission_denied"
	case ErrCodeFailedPrecondition:
		return "failed_precondition"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeUnavailable:
		return "unavailable"
	case ErrCodeUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// HTTPStatus maps the status to the closest HTTP status code.
func (c StatusCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidArgument:
		return 400
	case ErrCodeUnauthenticated:
		return 401
	case ErrCodePermissionDenied:
		return 403
	case ErrCodeNotFound:
		return 404
	case ErrCodeAlreadyExists, ErrCodeFailedPrecondition:
		return 409
	case ErrCodeUnavailable:
		return 503
	default:
		return 500
	}
}
