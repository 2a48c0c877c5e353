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
	"github.com/spf13/viper"

	"github.com/lexdesk/textsync/api/types"
)

var (
	title   string
	content string
	owner   string
)

func newCreateDocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [document id]",
		Short: "Create a new document",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.New("requires at most one document id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.CreateDocumentRequest{
				Title:   title,
				Content: content,
				Owner:   owner,
			}
			if len(args) == 1 {
				req.ID = args[0]
			}

			var summary types.DocumentSummary
			if err := newClient().do(cmd.Context(), http.MethodPost, "/documents", nil, req, &summary); err != nil {
				return err
			}

			return printDocuments(cmd, viper.GetString("output"), []*types.DocumentSummary{&summary})
		},
	}
}

func init() {
	cmd := newCreateDocumentCmd()
	cmd.Flags().StringVar(&title, "title", "", "Title of the document")
	cmd.Flags().StringVar(&content, "content", "", "Initial content of the document")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the document")
	SubCmd.AddCommand(cmd)
}
