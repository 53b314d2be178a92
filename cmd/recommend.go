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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepcogs/deepcogs/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [username]",
	Short: "Suggests releases to hunt for next",
	Long: `Walks from your most-collected styles through similar artists on
last.fm to sought-after vinyl you don't own yet. Requires lastfm_api_key.
This makes a number of paced API calls and takes a little while.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := printRecommendations(os.Stdout, usernameFromArgs(args))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}

func printRecommendations(out io.Writer, username string) error {
	similar, err := newLastfmClient()
	if err != nil {
		return err
	}

	ctx := rootCmd.Context()
	releases, err := loadCollection(ctx, username)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Looking for recommendations, this takes a little while...")
	engine := recommend.New(newDiscogsClient(), similar)
	result, err := engine.Recommend(ctx, releases)
	if err != nil {
		return fmt.Errorf("running recommendations: %w", err)
	}
	if len(result.Styles) == 0 {
		fmt.Fprintln(out, "Nothing to suggest - is the collection empty?")
		return nil
	}
	if !result.UsedExternalSimilarity {
		fmt.Fprintln(out, "Similar-artist lookups were unavailable; showing popular picks per style.")
	}

	for _, group := range result.Styles {
		fmt.Fprintf(out, "\n## %s - %s\n", group.Style, group.Reason)
		for _, rec := range group.Recommendations {
			line := fmt.Sprintf("  %s - %s", rec.Artist, rec.Title)
			if rec.Year > 0 {
				line += fmt.Sprintf(" (%d)", rec.Year)
			}
			if rec.SimilarTo != "" {
				line += " [similar to " + rec.SimilarTo + "]"
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
