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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/deepcogs/deepcogs/internal/cache"
	"github.com/deepcogs/deepcogs/internal/discogs"
	"github.com/deepcogs/deepcogs/internal/lastfm"
)

var cfgFile string
var discogsKey string
var discogsSecret string
var discogsToken string
var discogsTokenSecret string
var lastFmApiKey string
var lastFmSecret string
var discogsUser string
var databasePath string
var sendgridApiKey string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deepcogs",
	Short: "Analyzes Discogs vinyl collections",
	Long: `Collection DNA, deep cuts, collection comparison, trade matching,
and recommendations, from the command line or as an HTTP API.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.deepcogs.yaml)")

	rootCmd.PersistentFlags().StringVar(
		&discogsKey, "discogs_key", "", "Discogs consumer key")
	rootCmd.MarkPersistentFlagRequired("discogs_key")
	viper.BindPFlag("discogs_key", rootCmd.PersistentFlags().Lookup("discogs_key"))

	rootCmd.PersistentFlags().StringVar(
		&discogsSecret, "discogs_secret", "", "Discogs consumer secret")
	rootCmd.MarkPersistentFlagRequired("discogs_secret")
	viper.BindPFlag("discogs_secret", rootCmd.PersistentFlags().Lookup("discogs_secret"))

	rootCmd.PersistentFlags().StringVar(
		&discogsToken, "discogs_token", "", "Discogs OAuth access token (optional)")
	viper.BindPFlag("discogs_token", rootCmd.PersistentFlags().Lookup("discogs_token"))

	rootCmd.PersistentFlags().StringVar(
		&discogsTokenSecret, "discogs_token_secret", "", "Discogs OAuth access token secret (optional)")
	viper.BindPFlag("discogs_token_secret", rootCmd.PersistentFlags().Lookup("discogs_token_secret"))

	rootCmd.PersistentFlags().StringVar(
		&lastFmApiKey, "lastfm_api_key", "", "last.fm API key, used for recommendations")
	viper.BindPFlag("lastfm_api_key", rootCmd.PersistentFlags().Lookup("lastfm_api_key"))

	rootCmd.PersistentFlags().StringVar(
		&lastFmSecret, "lastfm_secret", "", "last.fm secret")
	viper.BindPFlag("lastfm_secret", rootCmd.PersistentFlags().Lookup("lastfm_secret"))

	rootCmd.PersistentFlags().StringVarP(
		&discogsUser, "user", "u", "", "Discogs username to act on")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.PersistentFlags().StringVarP(
		&databasePath, "database", "d", "./deepcogs.db", "Path to the SQLite cache database (empty disables caching)")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	rootCmd.PersistentFlags().StringVar(
		&sendgridApiKey, "sendgrid_api_key", "", "SendGrid API key, used for email reports")
	viper.BindPFlag("sendgrid_api_key", rootCmd.PersistentFlags().Lookup("sendgrid_api_key"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".deepcogs" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".deepcogs")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

func newDiscogsClient() *discogs.Client {
	token := viper.GetString("discogs_token")
	if token != "" {
		return discogs.NewWithToken(
			viper.GetString("discogs_key"), viper.GetString("discogs_secret"),
			token, viper.GetString("discogs_token_secret"))
	}
	return discogs.New(viper.GetString("discogs_key"), viper.GetString("discogs_secret"))
}

func newLastfmClient() (*lastfm.Client, error) {
	apiKey := viper.GetString("lastfm_api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("lastfm_api_key must be set for recommendations")
	}
	return lastfm.New(apiKey, viper.GetString("lastfm_secret")), nil
}

// openCache returns nil when caching is disabled by an empty database path.
func openCache() (*cache.Cache, error) {
	dbPath := viper.GetString("database")
	if dbPath == "" {
		return nil, nil
	}
	c, err := cache.New(dbPath, cache.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

// loadCollection fetches a user's collection, via the cache when one is
// configured.
func loadCollection(ctx context.Context, username string) ([]discogs.Release, error) {
	if username == "" {
		return nil, fmt.Errorf("no username given - pass one as an argument or set --user")
	}

	c, err := openCache()
	if err != nil {
		return nil, err
	}
	if c != nil {
		defer c.Close()
		if releases, ok, err := c.Collection(username); err == nil && ok {
			fmt.Printf("Using cached collection for %s (%d releases)\n", username, len(releases))
			return releases, nil
		}
	}

	fmt.Printf("Fetching collection for %s...\n", username)
	releases, err := newDiscogsClient().Collection(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetching collection: %w", err)
	}
	fmt.Printf("Fetched %d releases\n", len(releases))

	if c != nil {
		if err := c.PutCollection(username, releases); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: caching collection failed: %s\n", err)
		}
	}
	return releases, nil
}

// loadWantlist mirrors loadCollection for wantlists.
func loadWantlist(ctx context.Context, username string) ([]discogs.WantlistEntry, error) {
	c, err := openCache()
	if err != nil {
		return nil, err
	}
	if c != nil {
		defer c.Close()
		if wants, ok, err := c.Wantlist(username); err == nil && ok {
			return wants, nil
		}
	}

	wants, err := newDiscogsClient().Wantlist(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetching wantlist: %w", err)
	}
	if c != nil {
		if err := c.PutWantlist(username, wants); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: caching wantlist failed: %s\n", err)
		}
	}
	return wants, nil
}

// usernameFromArgs prefers a positional username, falling back to --user.
func usernameFromArgs(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return viper.GetString("user")
}
