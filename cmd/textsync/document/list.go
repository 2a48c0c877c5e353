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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lexdesk/textsync/api/types"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			var documents []*types.DocumentSummary
			if err := newClient().do(cmd.Context(), http.MethodGet, "/documents", nil, nil, &documents); err != nil {
				return err
			}

			return printDocuments(cmd, viper.GetString("output"), documents)
		},
	}
}

func printDocuments(cmd *cobra.Command, output string, documents []*types.DocumentSummary) error {
	switch output {
	case "":
		tw := newTable()
		tw.AppendHeader(table.Row{
			"ID",
			"TITLE",
			"VERSION",
			"LENGTH",
			"USERS",
			"LOCKED BY",
			"LOADED",
			"UPDATED AT",
		})
		for _, document := range documents {
			lockedBy := document.LockedBy
			if !document.Locked {
				lockedBy = "-"
			}
			tw.AppendRow(table.Row{
				document.ID,
				document.Title,
				document.Version,
				document.ContentLength,
				document.ActiveUsers,
				lockedBy,
				document.Loaded,
				since(document.UpdatedAt),
			})
		}
		cmd.Printf("%s\n", tw.Render())
	case "json":
		jsonOutput, err := json.MarshalIndent(documents, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(jsonOutput))
	case "yaml":
		yamlOutput, err := yaml.Marshal(documents)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		cmd.Println(string(yamlOutput))
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}

	return nil
}

func init() {
	SubCmd.AddCommand(newListCommand())
}
