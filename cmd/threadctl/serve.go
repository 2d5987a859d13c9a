package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alphabot-ai/commentthread/internal/commentsvc/svctest"
	"github.com/alphabot-ai/commentthread/internal/config"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr string
		user string
		seed bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory comment service for local sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}

			svc := svctest.New()
			svc.User = serveUser(cmd, user, cfg)
			svc.Logger = log
			if seed {
				seedDemo(svc)
			}

			server := &http.Server{
				Addr:         addr,
				Handler:      svc,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.WithField("addr", addr).Info("comment service listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				log.Info("shutting down comment service")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().StringVar(&user, "user", "", "user the requests are made as, overrides serve_user; empty for anonymous")
	cmd.Flags().BoolVar(&seed, "seed", true, "start with a demo thread on article 1")
	return cmd
}

func seedDemo(s *svctest.Server) {
	first := s.Seed("1", "bob", "Great article, thanks for sharing.", "")
	s.Seed("1", "carol", "I disagree with the second point.", first)
	mine := s.Seed("1", "alice", "Has anyone tried this in production?", "")
	s.Seed("1", "bob", "We have, it works well.", mine)
	s.CastVote(first, "carol", true)
	s.CastVote(first, "dave", true)
	s.CastVote(mine, "dave", false)
}

// serveUser prefers an explicit --user, even an empty one, over serve_user.
func serveUser(cmd *cobra.Command, user string, cfg *config.Config) string {
	if cmd.Flags().Changed("user") {
		return user
	}
	return cfg.ServeUser
}
