package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Authentication commands"}
	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Login as dashboard admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			reader := bufio.NewReader(os.Stdin)
			fmt.Fprint(cmd.OutOrStdout(), "Username: ")
			username, _ := reader.ReadString('\n')
			password, err := promptPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			if err := e.auth.AdminLogin(cmd.Context(), strings.TrimSpace(username), string(password)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "member-login <login-code>",
		Short: "Login with a member login code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			if err := e.auth.MemberLogin(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check whether the stored session is still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			ok, err := e.auth.VerifyToken(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Session valid")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Session invalid, please login")
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.init(cmd); err != nil {
				return err
			}
			if err := e.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	})
	return cmd
}

func promptPassword(cmd *cobra.Command, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	return pass, err
}
