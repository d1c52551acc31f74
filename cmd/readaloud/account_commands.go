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

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/session"
)

func newSignupCommand(ctx *commandContext) *cobra.Command {
	var username, nickname string
	var interests []string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account on the news backend",
		Long: "Create an account. Interests are section slugs or ids (" + categorySlugs() + ").\n" +
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
				if err := rt.service.Signup(runCtx, user, password, nickname, interests); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account created. Log in with `readaloud login -u %s`.\n", user)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVar(&nickname, "nickname", "", "Display name (defaults to the username)")
	cmd.Flags().StringSliceVar(&interests, "interests", nil, "Interest sections, comma separated")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newPasswdCommand(ctx *commandContext) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		Long: "Change the signed-in user's password.\n" +
			"Passwords come from READALOUD_PASSWORD and READALOUD_NEW_PASSWORD, from stdin (current then new, one per line)\n" +
			"with --password-stdin, or are prompted for.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, next, err := readPasswordChange(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), passwordStdin)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				if err := rt.service.ChangePassword(runCtx, current, next); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read both passwords from stdin")
	return cmd
}

// readPasswordChange asks for a confirmation only when the new password was
// typed at a prompt.
func readPasswordChange(r *bufio.Reader, prompt io.Writer, fromStdin bool) (string, string, error) {
	current, err := readSecret(r, prompt, "Current password", "READALOUD_PASSWORD", fromStdin)
	if err != nil {
		return "", "", err
	}
	next, err := readSecret(r, prompt, "New password", "READALOUD_NEW_PASSWORD", fromStdin)
	if err != nil {
		return "", "", err
	}
	if !fromStdin && os.Getenv("READALOUD_NEW_PASSWORD") == "" {
		confirm, err := readSecret(r, prompt, "Confirm new password", "", false)
		if err != nil {
			return "", "", err
		}
		if confirm != next {
			return "", "", errors.New("new passwords do not match")
		}
	}
	return current, next, nil
}

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the stored profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				fmt.Fprintln(cmd.OutOrStdout(), renderProfile(rt.session.Snapshot()))
				return nil
			})
		},
	}
	profileCmd.AddCommand(newProfileEditCommand(ctx))
	return profileCmd
}

func newProfileEditCommand(ctx *commandContext) *cobra.Command {
	var nickname string
	var interests []string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change nickname and interests",
		Long:  "Change nickname and interests. Interests are section slugs or ids (" + categorySlugs() + ").",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				cur := rt.session.Snapshot()
				name, picked := cur.Nickname, cur.Interests
				if cmd.Flags().Changed("nickname") {
					name = nickname
				}
				if cmd.Flags().Changed("interests") {
					picked = interests
				}
				st, err := rt.service.UpdateProfile(runCtx, name, picked)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderProfile(st))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "New display name")
	cmd.Flags().StringSliceVar(&interests, "interests", nil, "Interest sections, comma separated")
	return cmd
}

func renderProfile(st session.State) string {
	names := make([]string, 0, len(st.Interests))
	for _, v := range st.Interests {
		if c, ok := news.LookupCategory(v); ok {
			names = append(names, c.Name)
			continue
		}
		names = append(names, v)
	}
	rows := [][]string{
		{"Logged in", yesNo(st.LoggedIn())},
		{"Username", st.Username},
		{"Nickname", st.Nickname},
		{"Interests", strings.Join(names, ", ")},
		{"Voice", st.VoiceID},
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func categorySlugs() string {
	slugs := make([]string, 0, len(news.Categories))
	for _, c := range news.Categories {
		slugs = append(slugs, c.Slug)
	}
	return strings.Join(slugs, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
