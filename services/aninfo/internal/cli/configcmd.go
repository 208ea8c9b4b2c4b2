package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/aninfo/services/aninfo/internal/config"
)

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print every setting with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.defaults()
			vals, err := config.Values(a.ConfigDir)
			if err != nil {
				return err
			}
			for _, k := range config.Keys() {
				fmt.Fprintf(a.Out, "%-16s %v\n", k, vals[k])
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and write it to config.yaml",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.defaults()
			if err := config.Set(a.ConfigDir, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "%s = %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
