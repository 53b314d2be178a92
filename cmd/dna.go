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
)

var dnaCmd = &cobra.Command{
	Use:   "dna [username]",
	Short: "Prints a collection's DNA profile",
	Long: `Fetches the user's collection and summarizes it: top genres, styles,
labels, formats, decades, and the oddities hiding in the stacks.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := printDNA(os.Stdout, usernameFromArgs(args))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(dnaCmd)
}

func printDNA(out io.Writer, username string) error {
	releases, err := loadCollection(rootCmd.Context(), username)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Collection DNA for %s\n\n", username)
	for _, analyser := range dnaAnalysers() {
		result, err := analyser.GetResults(releases)
		if err != nil {
			return fmt.Errorf("running %s: %w", analyser.GetName(), err)
		}
		fmt.Fprintf(out, "## %s\n%s\n", analyser.GetName(), result)
	}
	return nil
}
