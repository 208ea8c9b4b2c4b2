package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/aninfo/internal/contract"
)

func newCommentsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read or post comments on an anime",
	}

	ls := &cobra.Command{
		Use:     "ls <mal-id>",
		Aliases: []string{"list"},
		Short:   "List comments, oldest first",
		Args:    cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			cs, err := a.ctl.Comments(ctx, id)
			if err != nil {
				return err
			}
			a.view.Comments(cs)
			return nil
		}),
	}

	post := &cobra.Command{
		Use:   "post <mal-id> <comment>",
		Short: "Post a comment",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			c, err := a.ctl.PostComment(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			a.view.Comments([]contract.CommentGet{c})
			return nil
		}),
	}

	cmd.AddCommand(ls, post)
	return cmd
}

func parseFilters(raw []string) ([]contract.Filter, error) {
	out := []contract.Filter{}
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := contract.ParseFilter(part)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func newTorrentsCmd(a *App) *cobra.Command {
	var filters []string
	var episode uint16
	cmd := &cobra.Command{
		Use:   "torrents <mal-id>",
		Short: "Find torrents for an anime",
		Long: `Torrents searches the torrent index through the aninfo server.

Without --episode the whole series is searched. Filters: BDRip, HEVC, DDP,
AMZN, FLAC, AllEpisodes.

Examples:
  aninfo torrents 52991 -e 3 -f HEVC
  aninfo torrents 52991 -f BDRip,FLAC`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, _ *cobra.Command, args []string) error {
			id, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			fs, err := parseFilters(filters)
			if err != nil {
				return err
			}
			ts, err := a.ctl.Torrents(ctx, id, episode, fs)
			if err != nil {
				return err
			}
			a.view.Torrents(ts)
			return nil
		}),
	}
	cmd.Flags().Uint16VarP(&episode, "episode", "e", 0, "Episode number (0 searches the whole series)")
	cmd.Flags().StringSliceVarP(&filters, "filter", "f", nil, "Release filters (repeatable or comma separated)")
	return cmd
}
