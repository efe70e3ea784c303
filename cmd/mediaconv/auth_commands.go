package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediaconv/internal/auth"
	"mediaconv/internal/services"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the bearer token used for API requests",
	}
	authCmd.AddCommand(newAuthSetTokenCommand(ctx))
	authCmd.AddCommand(newAuthStatusCommand(ctx))
	authCmd.AddCommand(newAuthClearCommand(ctx))
	return authCmd
}

func newAuthSetTokenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-token [TOKEN]",
		Short: "Store a bearer token in the token file (reads stdin when TOKEN is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 && args[0] != "-" {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token is empty")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.tokenStore()
			if err != nil {
				return err
			}
			if err := store.Save(auth.Credential{Token: token, BaseURL: cfg.API.BaseURL, SavedAt: time.Now().UTC()}); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token saved to %s\n", store.Path())
			if cfg.Auth.Token != "" {
				fmt.Fprintln(out, "Note: a token from configuration or MEDIACONV_TOKEN takes precedence over the token file")
			}
			return nil
		},
	}
}

func newAuthStatusCommand(ctx *commandContext) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which bearer token is active",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			provider, err := ctx.tokenProvider()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := newStatusPrinter(out, "token", "server")

			fmt.Fprintf(out, "API:        %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "Token file: %s\n", cfg.Auth.TokenFile)

			token, source, err := provider.Resolve(cmd.Context())
			if err != nil {
				if errors.Is(err, services.ErrUnauthenticated) {
					status.print("token", statusWarn, "not signed in; run `mediaconv auth set-token`")
					return nil
				}
				return err
			}
			status.print("token", statusOK, fmt.Sprintf("%s (from %s)", auth.Mask(token), source))

			if !verify {
				return nil
			}
			client, err := ctx.backendClient()
			if err != nil {
				return err
			}
			listing, err := client.ListFiles(cmd.Context())
			if err != nil {
				status.print("server", statusError, err.Error())
				return fmt.Errorf("verify token: %w", err)
			}
			status.print("server", statusOK, fmt.Sprintf("token accepted, %d files", listing.Total))
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the token against the server")
	return cmd
}

func newAuthClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.tokenStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed token file %s\n", store.Path())
			return nil
		},
	}
}
