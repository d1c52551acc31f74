package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var username string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the news backend",
		Long: "Sign in and remember the access token.\n" +
			"The password is read from READALOUD_PASSWORD, from stdin with --password-stdin, or prompted for.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := strings.TrimSpace(username)
			if user == "" {
				return errors.New("--username is required")
			}
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordStdin)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				if err := rt.service.Login(runCtx, user, password); err != nil {
					return err
				}
				st := rt.session.Snapshot()
				name := st.Nickname
				if name == "" {
					name = st.Username
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				if err := rt.service.Logout(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func readPassword(in io.Reader, prompt io.Writer, fromStdin bool) (string, error) {
	return readSecret(bufio.NewReader(in), prompt, "Password", "READALOUD_PASSWORD", fromStdin)
}

// readSecret returns envKey when set (unless fromStdin), otherwise one line
// from r, prompting with label first when not reading a pipe.
func readSecret(r *bufio.Reader, prompt io.Writer, label, envKey string, fromStdin bool) (string, error) {
	if !fromStdin {
		if v := os.Getenv(envKey); v != "" {
			return v, nil
		}
		fmt.Fprintf(prompt, "%s: ", label)
	}
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return secret, nil
}
