package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/brandinbox/pkg/forms"
	"github.com/angelmondragon/brandinbox/pkg/types"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			email = promptIfEmpty(cmd.OutOrStdout(), in, "Email", email)
			password = promptIfEmpty(cmd.OutOrStdout(), in, "Password", password)
			if err := forms.ValidateLogin(email, password); err != nil {
				return err
			}
			if _, err := a.api.Login(cmd.Context(), types.Credentials{Email: email, Password: password}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed in as "+email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			email = promptIfEmpty(out, in, "Email", email)
			password = promptIfEmpty(out, in, "Password", password)
			confirm = promptIfEmpty(out, in, "Confirm password", confirm)
			if err := forms.ValidateRegistration(email, password, confirm); err != nil {
				return err
			}
			user, err := a.api.Register(cmd.Context(), types.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Account %s created (id %d)", user.Email, user.ID)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "repeat the password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.api.Logout(cmd.Context()); err != nil {
				a.logg.Warn(cmd.Context(), "remote logout failed: "+err.Error())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newMeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", labelStyle.Render("Email:"), user.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", labelStyle.Render("ID:"), user.ID)
			return nil
		},
	}
}

func promptIfEmpty(out io.Writer, in *bufio.Reader, label, current string) string {
	if current != "" {
		return current
	}
	fmt.Fprintf(out, "%s: ", label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
