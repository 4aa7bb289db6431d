package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/door-client/client"
	"github.com/jrsteele09/door-client/identity"
	"github.com/jrsteele09/door-client/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	apiURL  string
	verbose bool
	banner  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cfg := config.New()

	cmd := &cobra.Command{
		Use:           "doorctl",
		Short:         "Command line client for the door controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cfg.GetLogLevel(), opts.verbose)
			if opts.banner {
				displayAppname(cfg.GetAppName())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "backend base URL including the API prefix (default from DOOR_API_URL/DOOR_API_PREFIX)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&opts.banner, "banner", false, "print the application banner")

	cmd.AddCommand(
		newStatusCmd(cfg, opts),
		newDoorCmd(cfg, opts, "open"),
		newDoorCmd(cfg, opts, "close"),
		newWhoamiCmd(cfg, opts),
		newCanCmd(cfg, opts),
		newLogsCmd(cfg, opts),
		newAllowCmd(cfg, opts),
		newWatchCmd(cfg, opts),
		newMockBackendCmd(),
	)
	return cmd
}

func setupLogging(level string, verbose bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// signIn builds a client and opens a session with the configured identity provider.
func signIn(ctx context.Context, cfg config.Config, opts *rootOptions) (*client.Client, error) {
	var clientOpts []client.Option
	if opts.apiURL != "" {
		clientOpts = append(clientOpts, client.WithBaseURL(strings.TrimRight(opts.apiURL, "/")))
	}

	c, err := client.New(cfg, clientOpts...)
	if err != nil {
		return nil, err
	}

	provider, err := identityProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, provider); err != nil {
		return nil, err
	}
	return c, nil
}

func identityProvider(ctx context.Context, cfg config.Config) (identity.Provider, error) {
	if tok := cfg.GetIDToken(); tok != "" {
		return identity.Static{IDToken: tok}, nil
	}
	if cfg.GetOIDCIssuer() == "" {
		return nil, fmt.Errorf("%w: set DOOR_ID_TOKEN or OIDC_ISSUER", identity.ErrNoAssertion)
	}

	return identity.NewOIDC(ctx, identity.OIDCConfig{
		Issuer:       cfg.GetOIDCIssuer(),
		ClientID:     cfg.GetOIDCClientID(),
		ClientSecret: cfg.GetOIDCClientSecret(),
		RedirectURL:  cfg.GetOIDCRedirectURL(),
	}, promptForCode)
}

// promptForCode prints the authorization URL and reads back the redirect URL (or bare code).
func promptForCode(_ context.Context, authURL string) (string, string, error) {
	fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n\n  %s\n\nPaste the URL you were redirected to: ", authURL)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("reading redirect: %w", err)
	}
	line = strings.TrimSpace(line)

	u, err := url.Parse(line)
	if err != nil || u.Query().Get("code") == "" {
		// Bare code: state cannot be checked, reuse the one we sent
		sent, _ := url.Parse(authURL)
		return line, sent.Query().Get("state"), nil
	}
	return u.Query().Get("code"), u.Query().Get("state"), nil
}
