package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/door-client/backend"
	"github.com/jrsteele09/door-client/client"
	"github.com/jrsteele09/door-client/internal/config"
	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/jrsteele09/door-client/route"
	"github.com/jrsteele09/door-client/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// withSession signs in, runs fn and signs out again.
func withSession(cmd *cobra.Command, cfg config.Config, opts *rootOptions, fn func(ctx context.Context, c *client.Client) error) error {
	ctx := cmd.Context()
	c, err := signIn(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Logout(context.WithoutCancel(ctx)); err != nil {
			log.Debug().Err(err).Msg("logout")
		}
	}()
	return explain(fn(ctx, c))
}

// explain turns the error taxonomy into something a person at a terminal can act on.
func explain(err error) error {
	switch autherrors.Kind(err) {
	case autherrors.ErrAuthInvalid:
		return fmt.Errorf("signed out, please sign in again: %w", err)
	case autherrors.ErrAuthorizationDenied:
		return fmt.Errorf("your role does not allow this: %w", err)
	}
	return err
}

func newStatusCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show door and alarm state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				st, err := c.Device.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "door:  %s\nalarm: %s\n", st.Door, st.Alarm)
				return nil
			})
		},
	}
}

func newDoorCmd(cfg config.Config, opts *rootOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("Send the %s command to the door", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := backend.ParseAction(action)
			if err != nil {
				return err
			}
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				if d := c.Navigate(route.Control); d != route.Allow {
					return fmt.Errorf("%w: door control needs admin or user role (%s)", autherrors.ErrAuthorizationDenied, d)
				}
				res, err := c.Device.Control(ctx, a)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			})
		},
	}
}

func newWhoamiCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				u, err := c.Session.CheckSession(ctx)
				if err != nil {
					return err
				}
				cred := c.Store().Get()
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nrole: %s\n", u.Name, u.Email, cred.Role)
				if cred.ExpiresAt != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "credential expires: %s\n", cred.ExpiresAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newCanCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "can ROUTE...",
		Short: "Check which views the current session may open",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, opts, func(_ context.Context, c *client.Client) error {
				for _, r := range args {
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", r, c.Navigate(r))
				}
				return nil
			})
		},
	}
}

func newLogsCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Door access history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List access log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				page, err := c.AccessLog.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTIME\tUSER\tMETHOD\tDOOR\tALARM")
				for _, l := range page.Logs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.Timestamp.Local().Format(time.DateTime), l.User, l.Method, l.Door, l.Alarm)
				}
				fmt.Fprintf(tw, "\n%d entries\n", page.Total)
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete one access log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				return c.AccessLog.Delete(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the whole access history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				return c.AccessLog.Clear(ctx)
			})
		},
	})
	return cmd
}

func newAllowCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allow",
		Short: "Manage the e-mail allow-list (admin)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List allowed e-mail addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				emails, err := c.AllowList.List(ctx)
				if err != nil {
					return err
				}
				for _, e := range emails {
					fmt.Fprintln(cmd.OutOrStdout(), e)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add EMAIL",
		Short: "Allow an e-mail address to sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				email, err := c.AllowList.Add(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", email)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove EMAIL",
		Short: "Revoke an e-mail address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				return c.AllowList.Remove(ctx, args[0])
			})
		},
	})
	return cmd
}

func newWatchCmd(cfg config.Config, opts *rootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll door status until interrupted, renewing the credential as needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withSession(cmd, cfg, opts, func(ctx context.Context, c *client.Client) error {
				events, unsubscribe := c.Store().Subscribe()
				defer unsubscribe()

				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					st, err := c.Device.Status(ctx)
					switch {
					case err == nil:
						fmt.Fprintf(cmd.OutOrStdout(), "%s door=%s alarm=%s\n", time.Now().Format(time.TimeOnly), st.Door, st.Alarm)
					case errors.Is(err, context.Canceled):
						return nil
					case errors.Is(err, autherrors.ErrAuthInvalid):
						return err
					default:
						log.Warn().Err(err).Msg("status poll failed")
					}

					select {
					case <-ctx.Done():
						return nil
					case ev := <-events:
						if ev.Type == session.EventCleared {
							return fmt.Errorf("%w: session ended", autherrors.ErrAuthInvalid)
						}
						log.Debug().Str("role", string(ev.Credential.Role)).Msg("credential updated")
					case <-ticker.C:
					}
				}
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")
	return cmd
}
