package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aaron-1990/line-routing/pkg/auth"
)

func newLoginCmd(opts *rootOpts) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain a bearer token",
		Long: `Log in with username and password and print the issued token on
stdout. When --password is omitted the password is read from stdin.

  export ROUTING_TOKEN=$(routing-admin login -u paula)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			if password == "" {
				fmt.Fprint(os.Stderr, "Password: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			var resp loginResponse
			err := opts.client().do(http.MethodPost, "/auth/login", loginRequest{
				Username: username,
				Password: password,
			}, &resp)
			if err != nil {
				return err
			}

			fmt.Println(resp.Token)
			logger.Infof("Token for %s (%s) expires in %s",
				resp.Username, resp.Role, time.Duration(resp.ExpiresIn)*time.Second)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username to log in as")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Hash a password for the server config",
		Long: `Print the bcrypt hash of a password for the auth.users section of the
server config. The config only ever holds hashes, never passwords.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func newGenKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-key",
		Short: "Generate an API key for machine clients",
		Long: `Generate a random API key. Add it to the auth.api_keys section of the
server config and hand it to the machine client; keys authenticate
with planner permissions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Println(key)
			return nil
		},
	}
}
