package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/coopco/dodgem/internal/bump"
	"github.com/coopco/dodgem/internal/config"
)

const missingLoginHint = "Please set login credentials with `dodgem login`"

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start bumping for the stored account",
		Long: "Start bumping for the stored account.\n\n" +
			"The prompts default to the configured bump target and interval (DODGEM_TARGET, DODGEM_INTERVAL).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, creds, err := a.prepare()
			if err != nil {
				return err
			}
			defaults, err := cfg.SessionConfig()
			if err != nil {
				return err
			}
			p := newPrompter(a.in, a.out)
			target, err := p.askTarget(defaults.Target)
			if err != nil {
				return err
			}
			minutes, err := p.askInterval(cfg.Bump.IntervalMinutes)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cfg, creds, target, minutes)
		},
	}
}

func newBumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bump <target> <interval>",
		Short: "Start bumping without prompting for target and interval",
		Long: "Start bumping without prompting for target and interval.\n\n" +
			"target is `all` or `oldest`; interval is the number of minutes to wait between bumps.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := bump.ParseTarget(args[0])
			if err != nil {
				return err
			}
			minutes, err := parseMinutes(args[1])
			if err != nil {
				return err
			}
			cfg, creds, err := a.prepare()
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cfg, creds, target, minutes)
		},
	}
}

// prepare loads the config and the stored login, telling the user how to
// store one when it is missing.
func (a *app) prepare() (*config.Config, bump.Credentials, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, bump.Credentials{}, err
	}
	creds, err := config.NewFileCredentialStore(a.configPath).Credentials()
	if errors.Is(err, bump.ErrConfiguration) {
		a.printer.Fail(missingLoginHint)
		return nil, bump.Credentials{}, shownError{err}
	}
	if err != nil {
		return nil, bump.Credentials{}, err
	}
	return cfg, creds, nil
}
