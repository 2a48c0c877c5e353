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

package auth

import (
	"context"
)

// key is the key for the context.Context.
type key int

// userKey is the key of the authenticated user.
const userKey key = 0

// UserFromCtx returns the user authenticated for the request, if any.
func UserFromCtx(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey).(User)
	return user, ok
}

// CtxWithUser creates a new context with the given User.
func CtxWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
