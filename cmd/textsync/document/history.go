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
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lexdesk/textsync/api/converter"
	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/pkg/operation"
)

var (
	fromVersion int64
	squash      bool
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [document id]",
		Short: "Show the operations applied to a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document id is required")
			}

			query := url.Values{}
			query.Set("from", strconv.FormatInt(fromVersion, 10))

			var history types.History
			if err := newClient().do(
				cmd.Context(), http.MethodGet, documentPath(args[0], "history"), query, nil, &history,
			); err != nil {
				return err
			}

			ops := history.Operations
			if squash {
				squashed, err := squashOperations(ops)
				if err != nil {
					return err
				}
				ops = squashed
			}

			return printHistory(cmd, viper.GetString("output"), ops)
		},
	}
}

// squashOperations composes runs of adjacent operations by the same author.
// Squashed operations carry the version of the last operation of their run.
func squashOperations(ops []types.Operation) ([]types.Operation, error) {
	entries, err := converter.FromEntries(ops)
	if err != nil {
		return nil, err
	}

	var squashed []types.Operation
	var run []operation.Operation
	flush := func(version int64) {
		for _, op := range operation.Squash(run) {
			squashed = append(squashed, converter.ToOperation(op, version))
		}
		run = run[:0]
	}

	for i, entry := range entries {
		if len(run) > 0 && run[len(run)-1].AuthorID() != entry.Operation.AuthorID() {
			flush(entries[i-1].Version)
		}
		run = append(run, entry.Operation)
	}
	if len(run) > 0 {
		flush(entries[len(entries)-1].Version)
	}

	return squashed, nil
}

func printHistory(cmd *cobra.Command, output string, ops []types.Operation) error {
	switch output {
	case "":
		tw := newTable()
		tw.AppendHeader(table.Row{
			"VERSION",
			"KIND",
			"POSITION",
			"LENGTH",
			"TEXT",
			"AUTHOR",
			"CREATED AT",
		})
		for _, op := range ops {
			author := op.AuthorName
			if author == "" {
				author = op.AuthorID
			}
			tw.AppendRow(table.Row{
				op.Version,
				op.Kind,
				op.Position,
				op.Length,
				strconv.Quote(op.Text),
				author,
				since(op.CreatedAt),
			})
		}
		cmd.Printf("%s\n", tw.Render())
	case "json":
		jsonOutput, err := json.MarshalIndent(ops, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(jsonOutput))
	case "yaml":
		yamlOutput, err := yaml.Marshal(ops)
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
	cmd := newHistoryCommand()
	cmd.Flags().Int64Var(
		&fromVersion,
		"from",
		0,
		"The version after which operations are listed",
	)
	cmd.Flags().BoolVar(
		&squash,
		"squash",
		false,
		"Compose adjacent operations of the same author",
	)
	SubCmd.AddCommand(cmd)
}
