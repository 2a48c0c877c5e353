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

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/rpc"
)

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [document id]",
		Short: "Print the content of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document id is required")
			}

			var doc types.DocumentContent
			if err := newClient().do(cmd.Context(), http.MethodGet, documentPath(args[0]), nil, nil, &doc); err != nil {
				return err
			}

			cmd.Printf("# %s v%d\n%s\n", doc.ID, doc.Version, doc.Content)
			return nil
		},
	}
}

func newSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save [document id]",
		Short: "Persist the live state of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document id is required")
			}

			var resp rpc.SaveResponse
			if err := newClient().do(
				cmd.Context(), http.MethodPost, documentPath(args[0], "save"), nil, nil, &resp,
			); err != nil {
				return err
			}

			cmd.Printf("Document %s saved at v%d\n", resp.ID, resp.Version)
			return nil
		},
	}
}

func init() {
	SubCmd.AddCommand(newShowCommand())
	SubCmd.AddCommand(newSaveCommand())
}
