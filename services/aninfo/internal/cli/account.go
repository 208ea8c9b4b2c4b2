package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/aninfo/services/aninfo/internal/backend"
)

func newLoginCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in to the aninfo server",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			pw, err := a.ReadPassword("Password: ")
			if err != nil {
				return err
			}
			tok, err := a.ctl.Login(ctx, args[0], pw)
			if err != nil {
				return err
			}
			if err := a.sess.SaveToken(tok, a.Now()); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			a.view.Message("Logged in as " + derefString(a.ctl.State().Session.Username))
			return nil
		}),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newRegisterCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account on the aninfo server",
		Long: `Register creates an account. The password must be at least 8 characters
and contain a lowercase letter, an uppercase letter, a digit and a symbol.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			pw, err := a.ReadPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := a.ReadPassword("Confirm password: ")
			if err != nil {
				return err
			}
			u, err := a.ctl.Register(ctx, args[0], pw, confirm)
			if err != nil {
				return err
			}
			a.view.Message(fmt.Sprintf("Registered %s. Log in with: aninfo login %s", u.Username, u.Username))
			return nil
		}),
	}
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			if err := a.ctl.Logout(ctx); err != nil && !errors.Is(err, backend.ErrNotLoggedIn) {
				return err
			}
			a.view.Message("Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user and their favourites",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			u, err := a.ctl.Refresh(ctx)
			if err != nil {
				return err
			}
			a.view.User(u)
			return nil
		}),
	}
}

func newFavCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage favourite anime",
	}

	add := &cobra.Command{
		Use:   "add <mal-id>",
		Short: "Add an anime to your favourites",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			d, err := a.ctl.Details(ctx, id, false)
			if err != nil {
				return err
			}
			if _, err := a.ctl.AddFavourite(ctx, d.Anime.Anime); err != nil {
				return err
			}
			a.view.Message("Added " + strings.TrimSpace(d.Anime.DefaultTitle()) + " to favourites")
			return nil
		}),
	}

	rm := &cobra.Command{
		Use:     "rm <mal-id>",
		Aliases: []string{"remove"},
		Short:   "Remove an anime from your favourites",
		Args:    cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.ctl.RemoveFavourite(ctx, int32(id)); err != nil {
				return err
			}
			a.view.Message(fmt.Sprintf("Removed %d from favourites", id))
			return nil
		}),
	}

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your favourites",
		Args:    cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			if _, err := a.ctl.Refresh(ctx); err != nil {
				return err
			}
			a.view.Favourites(a.ctl.Favourites())
			return nil
		}),
	}

	cmd.AddCommand(add, rm, ls)
	return cmd
}
