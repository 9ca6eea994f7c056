package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/skosovsky/toolbridge"
	"github.com/skosovsky/toolbridge/internal/builtins"
	"github.com/skosovsky/toolbridge/internal/config"
)

func newToolsCommand() *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the descriptors of the builtin tools as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tools, err := builtins.Tools(builtins.Options{})
			if err != nil {
				return err
			}
			descs := make([]toolbridge.Descriptor, 0, len(tools))
			for _, t := range tools {
				if tag != "" {
					tm, ok := t.(toolbridge.ToolMetadata)
					if !ok || !slices.Contains(tm.Tags(), tag) {
						continue
					}
				}
				descs = append(descs, t.Descriptor())
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(descs)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only tools with this tag")
	return cmd
}

func newConfigCommand(path *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := *path
			if p == "" {
				p = config.DefaultPath()
			}
			if _, err := os.Stat(p); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", p)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(p, config.Default()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*path)
			if err != nil {
				return err
			}
			data, err := cfg.Redacted().Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if version == "" {
				version = "dev"
			}
			fmt.Fprintln(cmd.OutOrStdout(), "assist", version)
		},
	}
}
