package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup [username] [email]",
	Short: "Create an account",
	Long: `Create an account on the chat server. Signing up does not log in;
run "chat login" afterwards.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSignup,
}

func runSignup(cmd *cobra.Command, args []string) error {
	d, err := services()
	if err != nil {
		return err
	}

	p := newPrompter(cmd)
	fields := []string{"", ""}
	copy(fields, args)
	for i, label := range []string{"Username: ", "Email: "} {
		if fields[i] != "" {
			continue
		}
		if fields[i], err = p.line(label); err != nil {
			return err
		}
	}

	password, err := p.password("Password: ")
	if err != nil {
		return err
	}
	confirm, err := p.password("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	user, err := d.Auth.Signup(cmd.Context(), fields[0], fields[1], password)
	if err != nil {
		return err
	}
	name := user.Username
	if name == "" {
		name = fields[0]
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Account %s created, run 'chat login %s' to log in\n", name, name)
	return nil
}

func init() {
	rootCmd.AddCommand(signupCmd)
}
