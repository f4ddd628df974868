package main

import (
	"fmt"

	"niucard/internal/account"

	"github.com/spf13/cobra"
)

var (
	accountUsername string
	accountPassword string
	accountEmail    string
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE:  runRegister,
	}
	cmd.Flags().StringVarP(&accountUsername, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&accountPassword, "password", "p", "", "Password (required)")
	cmd.Flags().StringVarP(&accountEmail, "email", "e", "", "E-mail address (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	cmd.Flags().StringVarP(&accountUsername, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&accountPassword, "password", "p", "", "Password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func accountPages(e *env) *account.Pages {
	return &account.Pages{Client: e.client, Session: e.store, Notifier: e.notify, Navigator: e.router}
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	return accountPages(newEnv(cmd)).Register(ctx, accountUsername, accountPassword, accountEmail)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	e := newEnv(cmd)
	if err := accountPages(e).Login(ctx, accountUsername, accountPassword); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", accountUsername)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := newEnv(cmd).dashboard(nil).Logout(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}
