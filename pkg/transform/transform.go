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

// Package transform rewrites concurrent operations so that applying them in
// either order converges to the same content.
package transform

import (
	"fmt"

	"github.com/lexdesk/textsync/pkg/operation"
)

// Transform derives the bottom two sides of the OT diamond: given a and b
// computed against the same content, it returns a', which applies after b,
// and b', which applies after a. Applying a then b' yields the same text as
// b then a'.
//
// Transform is symmetric, Transform(b, a) returns (b', a'). Concurrent
// inserts at one position are ordered by (AuthorID, ID) of the operations,
// the lower key goes first.
//
// An insert strictly inside a concurrent delete is dropped: it becomes a
// zero-length retain at the deletion point and the delete grows to remove
// the inserted text too.
func Transform(a, b operation.Operation) (operation.Operation, operation.Operation, error) {
	if err := a.Validate(); err != nil {
		return operation.Operation{}, operation.Operation{}, err
	}
	if err := b.Validate(); err != nil {
		return operation.Operation{}, operation.Operation{}, err
	}

	switch a.Kind() {
	case operation.Insert:
		switch b.Kind() {
		case operation.Insert:
			ap, bp := transformInsertInsert(a, b)
			return ap, bp, nil
		case operation.Delete:
			ap, bp := transformInsertDelete(a, b)
			return ap, bp, nil
		case operation.Retain:
			return a, shiftRetainByInsert(b, a), nil
		}
	case operation.Delete:
		switch b.Kind() {
		case operation.Insert:
			bp, ap := transformInsertDelete(b, a)
			return ap, bp, nil
		case operation.Delete:
			ap, bp := transformDeleteDelete(a, b)
			return ap, bp, nil
		case operation.Retain:
			return a, shiftRetainByDelete(b, a), nil
		}
	case operation.Retain:
		switch b.Kind() {
		case operation.Insert:
			return shiftRetainByInsert(a, b), b, nil
		case operation.Delete:
			return shiftRetainByDelete(a, b), b, nil
		case operation.Retain:
			return a, b, nil
		}
	}

	return operation.Operation{}, operation.Operation{}, fmt.Errorf(
		"transform %s against %s: %w", a.Kind(), b.Kind(), operation.ErrInvalidOperation,
	)
}

// AgainstHistory rebases op onto every entry of history appended after
// op.BaseVersion, in log order. The result is based on the last version it
// was transformed against. AgainstHistory has no side effects, rebasing the
// result again against the same history returns it unchanged.
func AgainstHistory(op operation.Operation, history []operation.Entry) (operation.Operation, error) {
	rebased := op
	for _, entry := range history {
		if entry.Version <= rebased.BaseVersion() {
			continue
		}

		ap, _, err := Transform(rebased, entry.Operation)
		if err != nil {
			return operation.Operation{}, fmt.Errorf("rebase onto v%d: %w", entry.Version, err)
		}
		rebased = ap.WithBaseVersion(entry.Version)
	}

	return rebased, nil
}

// precedes reports whether a goes before b when both insert at one position.
func precedes(a, b operation.Operation) bool {
	if a.AuthorID() != b.AuthorID() {
		return a.AuthorID() < b.AuthorID()
	}
	if a.ID() != b.ID() {
		return a.ID() < b.ID()
	}
	return a.Payload() <= b.Payload()
}

func transformInsertInsert(a, b operation.Operation) (operation.Operation, operation.Operation) {
	if a.Position() < b.Position() || (a.Position() == b.Position() && precedes(a, b)) {
		return a, b.WithPosition(b.Position() + a.Length())
	}
	return a.WithPosition(a.Position() + b.Length()), b
}

// transformInsertDelete returns (ins', del').
func transformInsertDelete(ins, del operation.Operation) (operation.Operation, operation.Operation) {
	switch {
	case ins.Position() <= del.Position():
		// Insert before delete. Delete shifts forward.
		return ins, del.WithPosition(del.Position() + ins.Length())
	case ins.Position() >= del.End():
		// Insert after delete. Insert shifts backward.
		return ins.WithPosition(ins.Position() - del.Length()), del
	default:
		// Insert inside the deleted range. The delete swallows the inserted
		// text and the insert collapses at the deletion point.
		return ins.AsRetain(del.Position()), del.WithLength(del.Length() + ins.Length())
	}
}

func transformDeleteDelete(a, b operation.Operation) (operation.Operation, operation.Operation) {
	if a.End() <= b.Position() {
		return a, b.WithPosition(b.Position() - a.Length())
	}
	if b.End() <= a.Position() {
		return a.WithPosition(a.Position() - b.Length()), b
	}

	// Ranges overlap. Each side only removes what the other left behind,
	// which starts at the beginning of the union.
	pos := min(a.Position(), b.Position())
	overlap := min(a.End(), b.End()) - max(a.Position(), b.Position())
	return shrinkDelete(a, pos, a.Length()-overlap), shrinkDelete(b, pos, b.Length()-overlap)
}

func shrinkDelete(del operation.Operation, pos, length int) operation.Operation {
	if length == 0 {
		return del.AsRetain(pos)
	}
	return del.WithPosition(pos).WithLength(length)
}

func shiftRetainByInsert(ret, ins operation.Operation) operation.Operation {
	if ins.Position() <= ret.Position() {
		return ret.WithPosition(ret.Position() + ins.Length())
	}
	if ins.Position() < ret.End() {
		return ret.WithLength(ret.Length() + ins.Length())
	}
	return ret
}

func shiftRetainByDelete(ret, del operation.Operation) operation.Operation {
	if del.End() <= ret.Position() {
		return ret.WithPosition(ret.Position() - del.Length())
	}
	if ret.End() <= del.Position() {
		return ret
	}

	// Retain overlaps the deleted range.
	overlap := min(ret.End(), del.End()) - max(ret.Position(), del.Position())
	return ret.WithPosition(min(ret.Position(), del.Position())).WithLength(ret.Length() - overlap)
}
