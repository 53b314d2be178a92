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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepcogs/deepcogs/internal/analysis"
	"github.com/deepcogs/deepcogs/internal/discogs"
)

var compareCmd = &cobra.Command{
	Use:   "compare <friend> [username]",
	Short: "Compares two collections",
	Long: `Measures taste compatibility between your collection and a friend's,
lists the styles you share and differ on, and proposes trades based on
each other's wantlists.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		username := viper.GetString("user")
		if len(args) > 1 {
			username = args[1]
		}
		err := printComparison(os.Stdout, username, args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func printComparison(out io.Writer, username, friend string) error {
	if username == "" {
		return fmt.Errorf("no username given - pass one as an argument or set --user")
	}
	if strings.EqualFold(username, friend) {
		return analysis.ErrSelfCompare
	}

	ctx := rootCmd.Context()
	mine, err := loadCollection(ctx, username)
	if err != nil {
		return err
	}
	theirs, err := loadCollection(ctx, friend)
	if err != nil {
		return err
	}
	if len(theirs) == 0 {
		return fmt.Errorf("%s: %w", friend, analysis.ErrEmptyCollection)
	}

	comparison := analysis.Compare(mine, theirs)

	fmt.Fprintf(out, "Compatibility between %s and %s: %d/100\n", username, friend, comparison.Score)
	fmt.Fprintf(out, "Records in common: %d (%.0f%% of all masters)\n",
		comparison.OverlapCount, comparison.OverlapRatio*100)
	fmt.Fprintf(out, "Only %s: %d, only %s: %d\n\n",
		username, comparison.OnlyMineCount, friend, comparison.OnlyTheirsCount)

	if len(comparison.SharedStyles) > 0 {
		fmt.Fprintln(out, "## Shared styles")
		for _, share := range comparison.SharedStyles {
			fmt.Fprintf(out, "  %s: %.1f%% of yours, %.1f%% of theirs\n",
				share.Style, share.MyPercent, share.TheirPercent)
		}
		fmt.Fprintln(out)
	}

	if len(comparison.BiggestDifferences) > 0 {
		fmt.Fprintln(out, "## Biggest differences")
		for _, share := range comparison.BiggestDifferences {
			fmt.Fprintf(out, "  %s: %.1f%% of yours, %.1f%% of theirs\n",
				share.Style, share.MyPercent, share.TheirPercent)
		}
		fmt.Fprintln(out)
	}

	printTrades(out, username, friend, mine, theirs)
	return nil
}

// printTrades is best effort: wantlists can be private, and the comparison
// stands on its own without them.
func printTrades(out io.Writer, username, friend string, mine, theirs []discogs.Release) {
	ctx := rootCmd.Context()

	theirWants, err := loadWantlist(ctx, friend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not fetch %s's wantlist: %s\n", friend, err)
	} else if give := analysis.FindTrades(mine, theirWants); len(give) > 0 {
		fmt.Fprintf(out, "## You have, %s wants\n", friend)
		for _, trade := range give {
			fmt.Fprintf(out, "  %s\n", releaseTitle(trade.Release))
		}
		fmt.Fprintln(out)
	}

	myWants, err := loadWantlist(ctx, username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not fetch your wantlist: %s\n", err)
	} else if get := analysis.FindTrades(theirs, myWants); len(get) > 0 {
		fmt.Fprintf(out, "## %s has, you want\n", friend)
		for _, trade := range get {
			fmt.Fprintf(out, "  %s\n", releaseTitle(trade.Release))
		}
		fmt.Fprintln(out)
	}
}
