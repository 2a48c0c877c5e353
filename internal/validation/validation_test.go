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

package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	t.Run("ValidateValue test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("Design-Doc_v2.1~draft", "required,doc_id,max=128"))

		err := ValidateValue("design doc", "required,doc_id,max=128")
		require.Error(t, err)
		assert.Equal(t, "doc_id", err.(Violation).Tag)

		err = ValidateValue("", "required,doc_id,max=128")
		require.Error(t, err)
		assert.Equal(t, "required", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("insert", "op_kind"))
		err = ValidateValue("replace", "op_kind")
		require.Error(t, err)
		assert.Equal(t, "op_kind", err.(Violation).Tag)
	})

	t.Run("ValidateStruct test", func(t *testing.T) {
		type Submit struct {
			DocumentID string `validate:"required,doc_id"`
			Kind       string `validate:"required,op_kind"`
			Position   int    `validate:"min=0"`
		}

		assert.NoError(t, ValidateStruct(Submit{DocumentID: "d1", Kind: "delete"}))

		err := ValidateStruct(Submit{DocumentID: "not a slug", Kind: "replace", Position: -1})
		structError := err.(*StructError)
		assert.Len(t, structError.Violations, 3)
		assert.Contains(t, structError.Error(), "Kind must be one of insert, delete or retain")
	})

	t.Run("custom rule test", func(t *testing.T) {
		assert.NoError(t, RegisterValidation("even", func(v validator.FieldLevel) bool {
			return v.Field().Int()%2 == 0
		}))
		assert.NoError(t, RegisterTranslation("even", "{0} must be even"))

		assert.NoError(t, ValidateValue(4, "even"))
		err := ValidateValue(3, "even")
		require.Error(t, err)
		assert.Equal(t, "even", err.(Violation).Tag)
	})
}
