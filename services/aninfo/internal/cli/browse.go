package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/aninfo/internal/query"
)

func addPageFlag(cmd *cobra.Command) {
	cmd.Flags().IntP("page", "p", 1, "Page number")
}

func pageFlag(cmd *cobra.Command) int {
	p, _ := cmd.Flags().GetInt("page")
	return max(p, 1)
}

func parseMalID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 || id > 1<<31-1 {
		return 0, fmt.Errorf("invalid MAL id %q", raw)
	}
	return id, nil
}

func newHomeCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show this season's anime and the all-time top",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")
			h, err := a.ctl.Home(ctx, refresh)
			if err != nil {
				return err
			}
			a.view.Home(h, a.Now(), a.ctl.IsFavourite)
			return nil
		}),
	}
	cmd.Flags().BoolP("refresh", "r", false, "Ignore the cached home page")
	return cmd
}

func (a *App) showKind(ctx context.Context, kind query.ResultKind, heading string, page int) error {
	res, err := a.ctl.ByKind(ctx, kind, page)
	if err != nil {
		return err
	}
	a.view.List(heading, res, page, a.ctl.IsFavourite)
	return nil
}

func newKindCmd(a *App, name, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			kind, err := query.ParseResultKind(name)
			if err != nil {
				return err
			}
			return a.showKind(ctx, kind, strings.ToUpper(name[:1])+name[1:], pageFlag(cmd))
		}),
	}
	addPageFlag(cmd)
	return cmd
}

// resolveGenre accepts a genre id or a (fuzzy) genre name.
func resolveGenre(raw string) (query.Genre, error) {
	if id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32); err == nil {
		if g, ok := query.GenreByID(uint32(id)); ok {
			return g, nil
		}
		return query.Genre{}, fmt.Errorf("unknown genre id %d", id)
	}
	matches := query.FindGenres(raw)
	if len(matches) == 0 {
		return query.Genre{}, fmt.Errorf("no genre matches %q", raw)
	}
	return matches[0], nil
}

func newGenreCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genre <id|name>",
		Short: "List anime of one genre, best scored first",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			g, err := resolveGenre(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.showKind(ctx, query.GenreKind(g.MalID), "Genre: "+g.Name, pageFlag(cmd))
		}),
	}
	addPageFlag(cmd)
	return cmd
}

func newProducerCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "producer <id>",
		Short: "List anime of one producer, best scored first",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid producer id %q", args[0])
			}
			return a.showKind(ctx, query.ProducerKind(uint32(id)), "Producer "+args[0], pageFlag(cmd))
		}),
	}
	addPageFlag(cmd)
	return cmd
}

func newSearchCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search anime by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			page := pageFlag(cmd)
			res, err := a.ctl.Search(ctx, q, page)
			if err != nil {
				return err
			}
			a.view.List(fmt.Sprintf("Results for %q", strings.TrimSpace(q)), res, page, a.ctl.IsFavourite)
			return nil
		}),
	}
	addPageFlag(cmd)
	return cmd
}

type exploreOptions struct {
	genres    []string
	excluded  []string
	startYear int
	endYear   int
	orderBy   string
	sort      string
}

func (o exploreOptions) build() (query.Filter, query.Sort, error) {
	var f query.Filter
	for _, raw := range o.genres {
		g, err := resolveGenre(raw)
		if err != nil {
			return f, query.Sort{}, err
		}
		f = f.AddGenre(g)
	}
	for _, raw := range o.excluded {
		g, err := resolveGenre(raw)
		if err != nil {
			return f, query.Sort{}, err
		}
		f = f.AddExcludedGenre(g)
	}
	if o.startYear > 0 {
		f = f.WithStartYear(o.startYear)
	}
	if o.endYear > 0 {
		f = f.WithEndYear(o.endYear)
	}
	if o.startYear > 0 && o.endYear > 0 && o.endYear < o.startYear {
		return f, query.Sort{}, fmt.Errorf("end year %d is before start year %d", o.endYear, o.startYear)
	}

	orderBy, err := query.ParseOrderBy(o.orderBy)
	if err != nil {
		return f, query.Sort{}, err
	}
	dir, err := query.ParseDirection(o.sort)
	if err != nil {
		return f, query.Sort{}, err
	}
	return f, query.Sort{}.WithOrderBy(orderBy).WithDirection(dir), nil
}

func newExploreCmd(a *App) *cobra.Command {
	var opts exploreOptions
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Filter anime by genre and year",
		Long: `Explore lists anime matching a genre and year filter.

Examples:
  # Best scored romance comedies
  aninfo explore -g romance -g comedy

  # Mecha from the nineties, oldest first
  aninfo explore -g mecha --start-year 1990 --end-year 1999 --order-by start_date --sort asc`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			f, s, err := opts.build()
			if err != nil {
				return err
			}
			page := pageFlag(cmd)
			res, err := a.ctl.Explore(ctx, f, s, page)
			if err != nil {
				return err
			}
			a.view.List("Explore", res, page, a.ctl.IsFavourite)
			return nil
		}),
	}
	cmd.Flags().StringArrayVarP(&opts.genres, "genre", "g", nil, "Include genre (id or name, repeatable)")
	cmd.Flags().StringArrayVarP(&opts.excluded, "exclude", "x", nil, "Exclude genre (id or name, repeatable)")
	cmd.Flags().IntVar(&opts.startYear, "start-year", 0, "Earliest start year")
	cmd.Flags().IntVar(&opts.endYear, "end-year", 0, "Latest start year")
	cmd.Flags().StringVar(&opts.orderBy, "order-by", "score", "Order by start_date, score or rank")
	cmd.Flags().StringVar(&opts.sort, "sort", "desc", "Sort direction: asc or desc")
	addPageFlag(cmd)
	return cmd
}

func newAnimeCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anime <mal-id>",
		Short: "Show the details of one anime",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			refresh, _ := cmd.Flags().GetBool("refresh")
			d, err := a.ctl.Details(ctx, id, refresh)
			if err != nil {
				return err
			}
			a.view.Details(d, a.ctl.IsFavourite(int32(id)))
			return nil
		}),
	}
	cmd.Flags().BoolP("refresh", "r", false, "Ignore the cached details")
	return cmd
}

func newEpisodesCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episodes <mal-id>",
		Short: "List the episodes of one anime",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			id, err := parseMalID(args[0])
			if err != nil {
				return err
			}
			page := pageFlag(cmd)
			p, err := a.ctl.Episodes(ctx, id, page)
			if err != nil {
				return err
			}
			a.view.Episodes(p, page)
			return nil
		}),
	}
	addPageFlag(cmd)
	return cmd
}

func newGenresCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "genres [term]",
		Short: "List genres, optionally fuzzy-filtered",
		RunE: a.run(func(_ context.Context, _ *cobra.Command, args []string) error {
			gs := query.Genres()
			if term := strings.Join(args, " "); strings.TrimSpace(term) != "" {
				gs = query.FindGenres(term)
			}
			a.view.Genres(gs)
			return nil
		}),
	}
}
