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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepcogs/deepcogs/internal/server"
)

var servePort int
var serveBaseURL string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the dashboard HTTP API",
	Long: `Serves the API the dashboard frontend talks to: the Discogs login
handshake, collection and wantlist access, DNA, deep cuts, comparison,
and recommendations.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServer(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveBaseURL, "base_url", "http://localhost:8080",
		"Public base URL, used for the OAuth callback")
	viper.BindPFlag("base_url", serveCmd.Flags().Lookup("base_url"))
}

func runServer() error {
	c, err := openCache()
	if err != nil {
		return err
	}
	if c != nil {
		defer c.Close()
	}

	config := server.Config{
		ConsumerKey:    viper.GetString("discogs_key"),
		ConsumerSecret: viper.GetString("discogs_secret"),
		BaseURL:        viper.GetString("base_url"),
		Cache:          c,
		Logger:         slog.Default(),
	}
	if similar, err := newLastfmClient(); err == nil {
		config.Similar = similar
	} else {
		slog.Warn("recommendations disabled", "reason", err)
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(servePort),
		Handler: server.New(config).Router(),
	}

	quit := make(chan os.Signal, 2)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		slog.Info("serving", "address", httpServer.Addr)

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "failed to start server: %s\n", err)
			quit <- os.Interrupt
		}
	}()

	signal.Notify(
		quit,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	<-quit

	slog.Info("Server shutting down...")

	go httpServer.Close()

	wg.Wait()
	return nil
}
