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

// Package main is the entry point of the Textsync CLI.
package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexdesk/textsync/cmd/textsync/document"
)

var rootCmd = &cobra.Command{
	Use:   "textsync",
	Short: "Real-time collaborative text editing server",
}

// Run executes CLI.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}

	return 0
}

func init() {
	viper.SetEnvPrefix("textsync")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(document.SubCmd)
	rootCmd.PersistentFlags().String("addr", "http://localhost:8080", "Address of the textsync server")
	rootCmd.PersistentFlags().String("auth-token", "", "Bearer token sent to the document API")
	rootCmd.PersistentFlags().StringP("output", "o", "", "One of 'yaml' or 'json'.")
	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("auth-token", rootCmd.PersistentFlags().Lookup("auth-token"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}
