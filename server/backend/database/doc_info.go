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

package database

import (
	"time"
	"unicode/utf8"
)

// DocInfo is a structure representing the persisted state of a document.
type DocInfo struct {
	// ID is the unique ID of the document.
	ID string `bson:"_id"`

	// Title is the human readable title of the document.
	Title string `bson:"title"`

	// Owner is the user who created the document.
	Owner string `bson:"owner"`

	// Content is the text of the document at Version.
	Content string `bson:"content"`

	// Version is the number of operations applied to the document.
	Version int64 `bson:"version"`

	// CreatedAt is the time when the document is created.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time when the document is last saved.
	UpdatedAt time.Time `bson:"updated_at"`
}

// ContentLength returns the length of the content in runes.
func (info *DocInfo) ContentLength() int {
	return utf8.RuneCountInString(info.Content)
}

// DeepCopy returns a deep copy of this DocInfo.
func (info *DocInfo) DeepCopy() *DocInfo {
	if info == nil {
		return nil
	}

	clone := *info
	return &clone
}
