package main

import (
	"github.com/spf13/cobra"

	"github.com/coopco/dodgem/internal/bump"
	"github.com/coopco/dodgem/internal/config"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Set login credentials for Rocket League Garage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(a.in, a.out)
			a.printer.Info("Please enter login credentials for Rocket League Garage")

			email, err := p.ask("Email Address: ")
			if err != nil {
				return err
			}
			password, err := p.askSecret("Password: ")
			if err != nil {
				return err
			}

			store := config.NewFileCredentialStore(a.configPath)
			if err := store.Save(bump.Credentials{Identity: email, Secret: password}); err != nil {
				return err
			}
			a.printer.Succeed("Rocket League Garage login credentials saved")
			return nil
		},
	}
}
