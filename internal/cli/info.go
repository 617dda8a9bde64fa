package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nova-bot/internal/config"
)

func (a *app) newTeamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "team",
		Short: "Show the people behind Nova-Bot",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, m := range a.content.Team {
				fmt.Fprintf(out, "%s\n  %s\n", m.Name, m.Description)
				if m.LinkedIn != "" {
					fmt.Fprintf(out, "  %s\n", m.LinkedIn)
				}
			}
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolvedConfigPath()
			if err != nil {
				return err
			}
			if exists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			if err := config.Default(dir).Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api.base_url    = %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "api.timeout     = %s\n", cfg.API.Timeout.Duration)
			fmt.Fprintf(out, "storage.db_path = %s\n", cfg.Storage.DBPath)
			fmt.Fprintf(out, "log.file        = %s\n", cfg.Log.File)
			fmt.Fprintf(out, "log.level       = %s\n", cfg.Log.Level)
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolvedConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, pathCmd)
	return cmd
}

func (a *app) resolvedConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.Path()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
