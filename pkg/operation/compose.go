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

package operation

// Compose merges b into a when b directly continues a: consecutive typing,
// forward deletion, backspacing, or erasing the tail of a fresh insert. Both
// must come from the same author. The merged operation keeps the identity
// and base version of a.
func Compose(a, b Operation) (Operation, bool) {
	if a.authorID != b.authorID || a.IsNoop() || b.IsNoop() {
		return Operation{}, false
	}

	switch {
	case a.kind == Insert && b.kind == Insert:
		if b.position != a.End() {
			return Operation{}, false
		}
		merged := NewInsert(a.position, a.payload+b.payload)
		return a.withShape(merged), true
	case a.kind == Delete && b.kind == Delete:
		if b.position == a.position {
			return a.WithLength(a.length + b.length), true
		}
		if b.End() == a.position {
			return a.WithPosition(b.position).WithLength(a.length + b.length), true
		}
		return Operation{}, false
	case a.kind == Insert && b.kind == Delete:
		if b.End() != a.End() || b.position < a.position {
			return Operation{}, false
		}
		kept := []rune(a.payload)[:b.position-a.position]
		if len(kept) == 0 {
			return a.AsRetain(a.position), true
		}
		return a.withShape(NewInsert(a.position, string(kept))), true
	default:
		return Operation{}, false
	}
}

// Squash composes consecutive operations of ops wherever possible.
func Squash(ops []Operation) []Operation {
	var res []Operation
	for _, op := range ops {
		if n := len(res); n > 0 {
			if merged, ok := Compose(res[n-1], op); ok {
				res[n-1] = merged
				continue
			}
		}
		res = append(res, op)
	}
	return res
}

// withShape copies kind, position, payload and length of shape onto o.
func (o Operation) withShape(shape Operation) Operation {
	o.kind = shape.kind
	o.position = shape.position
	o.payload = shape.payload
	o.length = shape.length
	return o
}
