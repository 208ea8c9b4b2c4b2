package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/aninfo/internal/apperr"
)

func newErrorCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "error CODE",
		Short: "Show the error page for an error code",
		Long: `Render the error page encoded by CODE: a two-letter kind (js, gl, sd, nf)
optionally followed by the message to show, e.g. "glConnection reset".

With --redirect the home page follows once the redirect delay has passed.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			e, err := apperr.Parse(args[0])
			if err != nil {
				return err
			}
			a.view.Error(e)

			if redirect, _ := cmd.Flags().GetBool("redirect"); !redirect {
				return nil
			}
			if err := a.Sleep(ctx, apperr.RedirectDelay); err != nil {
				return err
			}
			h, err := a.ctl.Home(ctx, false)
			if err != nil {
				return err
			}
			a.view.Home(h, a.Now(), a.ctl.IsFavourite)
			return nil
		}),
	}
	cmd.Flags().Bool("redirect", false, "Show the home page after the redirect delay")
	return cmd
}
