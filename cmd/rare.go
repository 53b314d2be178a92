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

var rareLimit int

var rareCmd = &cobra.Command{
	Use:   "rare [username]",
	Short: "Ranks the rarest pressings in a collection",
	Long: `Scores every release on pressing characteristics (test pressings,
promos, limited runs, age) and prints the ones that score above zero.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := printRare(os.Stdout, usernameFromArgs(args))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(rareCmd)
	rareCmd.Flags().IntVarP(&rareLimit, "limit", "n", 20, "Number of releases to show")
}

func printRare(out io.Writer, username string) error {
	releases, err := loadCollection(rootCmd.Context(), username)
	if err != nil {
		return err
	}

	analyser := DeepCutsAnalyser{NumToReturn: rareLimit}
	result, err := analyser.GetResults(releases)
	if err != nil {
		return fmt.Errorf("running %s: %w", analyser.GetName(), err)
	}
	fmt.Fprintf(out, "## %s for %s\n%s\n", analyser.GetName(), username, result)
	return nil
}
