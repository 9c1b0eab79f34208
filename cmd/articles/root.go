package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-article-sync/articlesync"
	"github.com/goliatone/go-article-sync/internal/transport"
	"github.com/goliatone/go-article-sync/pkg/di"
)

type app struct {
	container *di.Container
	verbose   bool
	apiURL    string
}

func (a *app) client() *articlesync.Client {
	return a.container.Client()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "articles",
		Short:         "Read and publish articles from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := di.DefaultConfig()

			tcfg, err := transport.FromEnv()
			if err != nil {
				return err
			}
			cfg.Transport = tcfg
			if a.apiURL != "" {
				cfg.Transport.BaseURL = a.apiURL
			}
			if a.verbose {
				logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
					With().Timestamp().Logger()
				cfg.Logger = logger
			}

			a.container, err = di.NewContainer(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.container != nil {
				a.container.Shutdown()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "base URL of the article service (overrides ARTICLESYNC_API_URL)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log requests and cache activity")

	root.AddCommand(
		newListCmd(a),
		newReadCmd(a),
		newPublishCmd(a),
		newDeleteCmd(a),
		newLikeCmd(a),
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newUpdateProfileCmd(a),
	)
	return root
}
