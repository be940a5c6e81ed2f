package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/teamconsole/internal/auth"
	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(a *app) *cobra.Command {
	var creds domain.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Email == "" {
				creds.Email = a.cfg.DevServer.UserEmail
			}
			if creds.Password == "" && creds.Code == "" {
				password, err := readPassword(cmd)
				if err != nil {
					return err
				}
				creds.Password = password
			}

			session, err := auth.SignIn(cmd.Context(), a.client, a.state, a.storage, creds)
			if err != nil {
				return err
			}
			writeln(cmd.OutOrStdout(), "Signed in as "+titleStyle.Render(session.DisplayName()))
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email (defaults to DEV_USER_EMAIL)")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Password; prompted when omitted")
	cmd.Flags().StringVar(&creds.Code, "code", "", "One-time login code instead of a password")
	return cmd
}

// readPassword prompts without echo on a terminal, or reads one line from
// the command's input otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.Logout(cmd.Context(), a.state, a.storage); err != nil {
				return err
			}
			writeln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			s := a.state.State().Session
			out := cmd.OutOrStdout()
			if a.output == "yaml" {
				return printYAML(out, struct {
					UUID        string `json:"uuid"`
					Email       string `json:"email"`
					FirstName   string `json:"first_name,omitempty"`
					LastName    string `json:"last_name,omitempty"`
					IsSuperuser bool   `json:"is_superuser"`
				}{s.UUID, s.Email, s.FirstName, s.LastName, s.IsSuperuser})
			}
			writeln(out, titleStyle.Render(s.DisplayName())+" "+idStyle.Render(s.Email))
			writeln(out, dimStyle.Render("uuid: "+s.UUID))
			if s.IsSuperuser {
				writeln(out, dimStyle.Render("superuser"))
			}
			return nil
		},
	}
}
