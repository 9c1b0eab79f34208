package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-article-sync/articlesync"
)

func newLoginCmd(a *app) *cobra.Command {
	creds := articlesync.Credentials{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client().Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	reg := articlesync.Registration{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client().Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "welcome, %s\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Username, "username", "", "account name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and drop the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client().CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.Username, user.Email)
			if user.Bio != "" {
				fmt.Fprintln(out, user.Bio)
			}
			return nil
		},
	}
}

func newUpdateProfileCmd(a *app) *cobra.Command {
	update := articlesync.UserUpdate{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client().UpdateUser(cmd.Context(), update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile updated for %s\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&update.Username, "username", "", "new account name")
	cmd.Flags().StringVar(&update.Email, "email", "", "new email")
	cmd.Flags().StringVar(&update.Password, "password", "", "new password")
	cmd.Flags().StringVar(&update.Bio, "bio", "", "new bio")
	cmd.Flags().StringVar(&update.Image, "image", "", "new avatar URL")
	return cmd
}
