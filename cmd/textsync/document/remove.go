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

package document

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"
)

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [document id]",
		Short: "Remove a document and disconnect its participants",
		Example: "  textsync document remove doc-1",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document id is required")
			}

			if err := newClient().do(cmd.Context(), http.MethodDelete, documentPath(args[0]), nil, nil, nil); err != nil {
				return err
			}

			cmd.Printf("Document %s removed\n", args[0])
			return nil
		},
	}
}

func init() {
	SubCmd.AddCommand(newRemoveCommand())
}
