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

// Package operation provides the atomic edit of a shared text document.
//
// Positions and lengths of an Operation count Unicode code points, not
// bytes. An Operation is an immutable value: every With method returns a
// modified copy.
package operation

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/lexdesk/textsync/pkg/errors"
)

// ErrInvalidOperation is returned when an operation is malformed or does not
// fit the content it targets.
var ErrInvalidOperation = errors.InvalidArgument("invalid operation").WithCode("invalid_operation")

// Kind is the kind of an Operation.
type Kind int

const (
	// Retain keeps a range of the content untouched. It is used for cursor
	// movement and as the result of an operation whose effect has been
	// absorbed by a concurrent one.
	Retain Kind = iota

	// Insert inserts the payload at the position.
	Insert

	// Delete removes length code points starting at the position.
	Delete
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Retain:
		return "retain"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("kind_%d", int(k))
	}
}

// ParseKind parses the wire name of a kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "retain":
		return Retain, nil
	case "insert":
		return Insert, nil
	case "delete":
		return Delete, nil
	default:
		return 0, fmt.Errorf("unknown kind %q: %w", s, ErrInvalidOperation)
	}
}

// Operation is a single edit of a document.
type Operation struct {
	id          string
	kind        Kind
	position    int
	payload     string
	length      int
	authorID    string
	authorName  string
	baseVersion int64
	createdAt   time.Time
}

// NewInsert creates an operation inserting text at pos.
func NewInsert(pos int, text string) Operation {
	return Operation{
		kind:     Insert,
		position: pos,
		payload:  text,
		length:   utf8.RuneCountInString(text),
	}
}

// NewDelete creates an operation deleting length code points at pos.
func NewDelete(pos, length int) Operation {
	return Operation{kind: Delete, position: pos, length: length}
}

// NewRetain creates an operation retaining length code points at pos.
func NewRetain(pos, length int) Operation {
	return Operation{kind: Retain, position: pos, length: length}
}

// ID returns the ID of the operation.
func (o Operation) ID() string { return o.id }

// Kind returns the kind of the operation.
func (o Operation) Kind() Kind { return o.kind }

// Position returns the position the operation applies at.
func (o Operation) Position() int { return o.position }

// Payload returns the inserted text. It is empty for non-inserts.
func (o Operation) Payload() string { return o.payload }

// Length returns the number of code points the operation covers.
func (o Operation) Length() int { return o.length }

// End returns the position right after the covered range.
func (o Operation) End() int { return o.position + o.length }

// AuthorID returns the ID of the user who submitted the operation.
func (o Operation) AuthorID() string { return o.authorID }

// AuthorName returns the display name of the author.
func (o Operation) AuthorName() string { return o.authorName }

// BaseVersion returns the document version the operation was computed
// against.
func (o Operation) BaseVersion() int64 { return o.baseVersion }

// CreatedAt returns the time the operation was created.
func (o Operation) CreatedAt() time.Time { return o.createdAt }

// IsNoop returns whether applying the operation leaves content unchanged.
func (o Operation) IsNoop() bool {
	return o.kind == Retain || o.length == 0
}

// WithID returns a copy with the given ID.
func (o Operation) WithID(id string) Operation {
	o.id = id
	return o
}

// WithAuthor returns a copy authored by the given user.
func (o Operation) WithAuthor(id, name string) Operation {
	o.authorID = id
	o.authorName = name
	return o
}

// WithBaseVersion returns a copy based on the given version.
func (o Operation) WithBaseVersion(v int64) Operation {
	o.baseVersion = v
	return o
}

// WithCreatedAt returns a copy with the given creation time.
func (o Operation) WithCreatedAt(t time.Time) Operation {
	o.createdAt = t
	return o
}

// WithPosition returns a copy moved to pos.
func (o Operation) WithPosition(pos int) Operation {
	o.position = pos
	return o
}

// WithLength returns a copy covering length code points. For inserts the
// length is tied to the payload and cannot be changed.
func (o Operation) WithLength(length int) Operation {
	if o.kind == Insert {
		return o
	}
	o.length = length
	return o
}

// AsRetain returns a zero-length retain at pos that keeps the identity of o.
// It is what an operation collapses to once a concurrent edit absorbed it.
func (o Operation) AsRetain(pos int) Operation {
	o.kind = Retain
	o.position = pos
	o.payload = ""
	o.length = 0
	return o
}

// Validate checks that the operation is well formed on its own.
func (o Operation) Validate() error {
	if o.position < 0 {
		return fmt.Errorf("negative position %d: %w", o.position, ErrInvalidOperation)
	}
	if o.length < 0 {
		return fmt.Errorf("negative length %d: %w", o.length, ErrInvalidOperation)
	}
	if o.baseVersion < 0 {
		return fmt.Errorf("negative base version %d: %w", o.baseVersion, ErrInvalidOperation)
	}

	switch o.kind {
	case Insert:
		if o.length != utf8.RuneCountInString(o.payload) {
			return fmt.Errorf("insert length %d does not match payload: %w", o.length, ErrInvalidOperation)
		}
		if !utf8.ValidString(o.payload) {
			return fmt.Errorf("insert payload is not valid UTF-8: %w", ErrInvalidOperation)
		}
	case Delete, Retain:
		if o.payload != "" {
			return fmt.Errorf("%s carries a payload: %w", o.kind, ErrInvalidOperation)
		}
	default:
		return fmt.Errorf("unknown kind %d: %w", int(o.kind), ErrInvalidOperation)
	}

	return nil
}

// ValidateAgainst checks that the operation fits content of the given length.
func (o Operation) ValidateAgainst(contentLen int) error {
	if err := o.Validate(); err != nil {
		return err
	}

	switch o.kind {
	case Insert, Retain:
		if o.position > contentLen {
			return fmt.Errorf(
				"%s at %d beyond content length %d: %w",
				o.kind, o.position, contentLen, ErrInvalidOperation,
			)
		}
	case Delete:
		if o.End() > contentLen {
			return fmt.Errorf(
				"delete [%d, %d) beyond content length %d: %w",
				o.position, o.End(), contentLen, ErrInvalidOperation,
			)
		}
	}

	return nil
}

// Apply applies the operation to text and returns the new text. text is not
// modified. Out-of-range positions are clamped: an insert past the end
// appends, and a delete past the end stops at the end.
func (o Operation) Apply(text []rune) []rune {
	pos := min(max(o.position, 0), len(text))

	switch o.kind {
	case Insert:
		ins := []rune(o.payload)
		res := make([]rune, 0, len(text)+len(ins))
		res = append(res, text[:pos]...)
		res = append(res, ins...)
		return append(res, text[pos:]...)
	case Delete:
		end := min(pos+max(o.length, 0), len(text))
		res := make([]rune, 0, len(text)-(end-pos))
		res = append(res, text[:pos]...)
		return append(res, text[end:]...)
	default:
		return text
	}
}

// String returns a compact description of the operation.
func (o Operation) String() string {
	switch o.kind {
	case Insert:
		return fmt.Sprintf("insert(%d, %q)", o.position, o.payload)
	case Delete:
		return fmt.Sprintf("delete(%d, %d)", o.position, o.length)
	default:
		return fmt.Sprintf("retain(%d, %d)", o.position, o.length)
	}
}

// Entry is an operation recorded in a document log, together with the
// version the document reached by applying it.
type Entry struct {
	Operation Operation
	Version   int64
}
