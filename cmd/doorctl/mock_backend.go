package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/door-client/internal/mockbackend"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// newMockBackendCmd serves a local fake backend for trying the client without the real one.
// Sign in with DOOR_ID_TOKEN=admin or DOOR_ID_TOKEN=user.
func newMockBackendCmd() *cobra.Command {
	var (
		addr      string
		accessTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:    "mock-backend",
		Short:  "Run a local fake door backend",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mb := mockbackend.New(
				mockbackend.WithAccessTTL(accessTTL),
				mockbackend.WithUser("admin", mockbackend.User{Email: "admin@example.com", Name: "Admin", Role: "admin"}),
				mockbackend.WithUser("user", mockbackend.User{Email: "user@example.com", Name: "User", Role: "user"}),
				mockbackend.WithUser("visitor", mockbackend.User{Email: "visitor@example.com", Name: "Visitor", Role: "visitor"}),
			)
			server := &http.Server{Addr: addr, Handler: mb, ReadHeaderTimeout: 5 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Dur("access_ttl", accessTTL).Msg("mock backend listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("server.ListenAndServe: %w", err)
				}
				close(errCh)
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case <-stop:
			case err := <-errCh:
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server.Shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":4300", "listen address")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", time.Minute, "access token lifetime")
	return cmd
}
