/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Gets a Discogs access token for your account.",
	Long: `This is needed for wantlist edits and for reading your own private
collection. Put the printed values in your config file as discogs_token
and discogs_token_secret.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := authenticate(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(authenticateCmd)
}

func authenticate() error {
	ctx := rootCmd.Context()
	client := newDiscogsClient()

	// Out-of-band flow: Discogs shows the verifier to the user instead of
	// redirecting.
	requestToken, requestSecret, authURL, err := client.RequestToken(ctx, "oob")
	if err != nil {
		return fmt.Errorf("starting authentication: %w", err)
	}

	fmt.Println("Visit this URL to authorize deepcogs:")
	fmt.Println("  " + authURL)
	fmt.Print("Enter the code Discogs shows you: ")

	reader := bufio.NewReader(os.Stdin)
	verifier, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading verifier: %w", err)
	}
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return fmt.Errorf("no verifier entered")
	}

	token, secret, err := client.AccessToken(ctx, requestToken, requestSecret, verifier)
	if err != nil {
		return fmt.Errorf("completing authentication: %w", err)
	}

	fmt.Println("\nAdd these to your config file:")
	fmt.Printf("discogs_token: %s\n", token)
	fmt.Printf("discogs_token_secret: %s\n", secret)
	return nil
}
