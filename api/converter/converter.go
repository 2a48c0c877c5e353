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

// Package converter converts between the wire types of the sync protocol and
// the operation model.
package converter

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/internal/validation"
	"github.com/lexdesk/textsync/pkg/operation"
)

// FromOperation converts a wire operation submitted by a client into an
// Operation. The author is taken from the authenticated connection rather
// than from the message. An empty ID is replaced with a generated one.
func FromOperation(pbOp *types.Operation, authorID, authorName string) (operation.Operation, error) {
	if pbOp == nil {
		return operation.Operation{}, fmt.Errorf("missing operation: %w", operation.ErrInvalidOperation)
	}
	if err := validation.ValidateStruct(pbOp); err != nil {
		return operation.Operation{}, fmt.Errorf("%s: %w", err.Error(), operation.ErrInvalidOperation)
	}

	kind, err := operation.ParseKind(pbOp.Kind)
	if err != nil {
		return operation.Operation{}, err
	}

	if kind != operation.Insert && pbOp.Text != "" {
		return operation.Operation{}, fmt.Errorf("%s carries text: %w", kind, operation.ErrInvalidOperation)
	}

	var op operation.Operation
	switch kind {
	case operation.Insert:
		if pbOp.Length != 0 && pbOp.Length != utf8.RuneCountInString(pbOp.Text) {
			return operation.Operation{}, fmt.Errorf(
				"insert length %d does not match text: %w", pbOp.Length, operation.ErrInvalidOperation,
			)
		}
		op = operation.NewInsert(pbOp.Position, pbOp.Text)
	case operation.Delete:
		op = operation.NewDelete(pbOp.Position, pbOp.Length)
	case operation.Retain:
		op = operation.NewRetain(pbOp.Position, pbOp.Length)
	}

	id := pbOp.ID
	if id == "" {
		id = types.NewID().String()
	}
	createdAt := pbOp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	op = op.WithID(id).
		WithAuthor(authorID, authorName).
		WithBaseVersion(pbOp.BaseVersion).
		WithCreatedAt(createdAt)
	if err := op.Validate(); err != nil {
		return operation.Operation{}, err
	}

	return op, nil
}

// ToOperation converts an Operation into its wire form.
func ToOperation(op operation.Operation, version int64) types.Operation {
	return types.Operation{
		ID:          op.ID(),
		Kind:        op.Kind().String(),
		Position:    op.Position(),
		Text:        op.Payload(),
		Length:      op.Length(),
		BaseVersion: op.BaseVersion(),
		AuthorID:    op.AuthorID(),
		AuthorName:  op.AuthorName(),
		CreatedAt:   op.CreatedAt(),
		Version:     version,
	}
}

// ToOperations converts log entries into their wire form.
func ToOperations(entries []operation.Entry) []types.Operation {
	ops := make([]types.Operation, 0, len(entries))
	for _, entry := range entries {
		ops = append(ops, ToOperation(entry.Operation, entry.Version))
	}
	return ops
}

// FromEntries converts wire operations, as listed in a history, back into
// log entries.
func FromEntries(pbOps []types.Operation) ([]operation.Entry, error) {
	entries := make([]operation.Entry, 0, len(pbOps))
	for i := range pbOps {
		op, err := FromOperation(&pbOps[i], pbOps[i].AuthorID, pbOps[i].AuthorName)
		if err != nil {
			return nil, fmt.Errorf("operation at v%d: %w", pbOps[i].Version, err)
		}
		entries = append(entries, operation.Entry{Operation: op, Version: pbOps[i].Version})
	}
	return entries, nil
}
