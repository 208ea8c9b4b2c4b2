// Package cli wires the aninfo commands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/example/aninfo/internal/apperr"
	"github.com/example/aninfo/internal/appstate"
	"github.com/example/aninfo/internal/fetch"
	"github.com/example/aninfo/internal/jikan"
	"github.com/example/aninfo/internal/platform/logging"
	"github.com/example/aninfo/services/aninfo/internal/backend"
	"github.com/example/aninfo/services/aninfo/internal/browse"
	"github.com/example/aninfo/services/aninfo/internal/config"
	"github.com/example/aninfo/services/aninfo/internal/render"
	"github.com/example/aninfo/services/aninfo/internal/session"
)

// ErrReported is returned after an error page was already rendered.
var ErrReported = errors.New("error already reported")

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// App holds the process-wide collaborators. Zero-value hooks fall back to
// the real implementations.
type App struct {
	Out       io.Writer
	Err       io.Writer
	In        io.Reader
	ConfigDir string
	Now       func() time.Time

	ReadPassword func(prompt string) (string, error)
	Sleep        func(ctx context.Context, d time.Duration) error
	NewProvider  func(cfg *config.Config, f *fetch.Client, log *zap.Logger) (jikan.Provider, func())
	NewBackend   func(cfg *config.Config, f *fetch.Client, log *zap.Logger) browse.Backend

	cfg     *config.Config
	log     *zap.Logger
	sess    *session.Store
	ctl     *browse.Controller
	view    *render.Renderer
	stdin   *bufio.Reader
	cleanup []func()
}

func NewApp() *App {
	return &App{Out: os.Stdout, Err: os.Stderr, In: os.Stdin}
}

func (a *App) defaults() {
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.ReadPassword == nil {
		a.ReadPassword = a.readPassword
	}
	if a.Sleep == nil {
		a.Sleep = sleepCtx
	}
	if a.NewProvider == nil {
		a.NewProvider = newJikan
	}
	if a.NewBackend == nil {
		a.NewBackend = func(cfg *config.Config, f *fetch.Client, log *zap.Logger) browse.Backend {
			return backend.New(cfg.BackendURL, backend.WithFetcher(f), backend.WithLogger(log))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newJikan(cfg *config.Config, f *fetch.Client, log *zap.Logger) (jikan.Provider, func()) {
	lim := jikan.NewRPS(max(int(cfg.JikanRPS), 1))
	c := jikan.New(cfg.JikanURL, jikan.WithFetcher(f), jikan.WithLimiter(lim), jikan.WithLogger(log))
	return c, lim.Stop
}

// readPassword reads without echo from a terminal and falls back to a plain
// line read otherwise.
func (a *App) readPassword(prompt string) (string, error) {
	fmt.Fprint(a.Err, prompt)
	if f, ok := a.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	if a.stdin == nil {
		a.stdin = bufio.NewReader(a.In)
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *App) termWidth() int {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			return w
		}
	}
	return render.DefaultWidth
}

// open loads configuration, restores the session and builds the controller.
func (a *App) open(cmd *cobra.Command) error {
	a.defaults()
	cfg, err := config.Load(a.ConfigDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	a.log = logging.NewConsole(level, a.Err)

	sess, err := session.Open(cfg.Session.Path)
	if err != nil {
		return err
	}
	a.sess = sess
	a.cleanup = append(a.cleanup, func() { sess.Close() })

	st, err := sess.Restore(cfg.Prefs(), a.Now())
	if err != nil {
		a.log.Warn("discarding saved state", zap.Error(err))
		st = appstate.New().WithTheme(cfg.Prefs().Theme).WithLanguage(cfg.Prefs().Language).WithNSFW(cfg.NSFW)
	}

	f := fetch.New(
		fetch.WithPolicy(cfg.Policy()),
		fetch.WithUserAgent("aninfo/"+Version),
		fetch.WithLogger(a.log),
	)
	provider, stop := a.NewProvider(cfg, f, a.log)
	if stop != nil {
		a.cleanup = append(a.cleanup, stop)
	}
	store := appstate.NewStore(st)
	a.cleanup = append(a.cleanup, store.Subscribe(a.loadingNotice()))
	a.ctl = browse.New(store, provider, a.NewBackend(cfg, f, a.log), a.log)
	a.view = render.New(a.Out, st.Prefs, a.termWidth())
	return nil
}

// loadingNotice reports page loads on stderr as the state enters the
// loading phase.
func (a *App) loadingNotice() func(appstate.State) {
	loading := false
	return func(s appstate.State) {
		if s.LoadingPage && !loading {
			fmt.Fprintf(a.Err, "Loading page %d…\n", s.Page)
		}
		loading = s.LoadingPage
		a.log.Debug("state changed",
			zap.Int("page", s.Page), zap.String("query", s.Query), zap.Bool("loading", s.LoadingPage))
	}
}

// close persists the state snapshot. A state without a session also drops
// the stored cookie.
func (a *App) close() {
	if a.ctl != nil && a.sess != nil {
		st := a.ctl.State()
		if err := a.sess.SaveSnapshot(st.Snapshot()); err != nil {
			a.log.Warn("failed to save state", zap.Error(err))
		}
		if !st.Session.LoggedIn() {
			if err := a.sess.ClearToken(); err != nil {
				a.log.Warn("failed to clear session cookie", zap.Error(err))
			}
		}
	}
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// run adapts fn to a cobra RunE with the app opened around it.
func (a *App) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer a.close()
		return a.report(fn(cmd.Context(), cmd, args))
	}
}

// report renders fetch failures as an error page. Backend rejections carry
// their error code; anything else is returned as is.
func (a *App) report(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if code := backend.ErrorCode(err); code != "" {
		return fmt.Errorf("request rejected: %s", code)
	}
	if fetch.KindOf(err) != fetch.KindUnknown || errors.Is(err, fetch.ErrServiceUnavailable) {
		a.log.Debug("request failed", zap.Error(err))
		a.view.Error(apperr.FromError(err))
		return ErrReported
	}
	return err
}

// NewRootCmd creates the root command for aninfo.
func NewRootCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "aninfo",
		Version: Version,
		Short:   "Browse anime from MyAnimeList in the terminal",
		Long: `aninfo browses anime metadata from the Jikan (MyAnimeList) API and talks
to an aninfo-server for accounts, favourites, comments and torrent lookup.

Configuration is read from $XDG_CONFIG_HOME/aninfo/config.yaml and ANINFO_*
environment variables. Use "aninfo config" to inspect or change it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&a.ConfigDir, "config-dir", a.ConfigDir, "Configuration directory")

	cmd.AddCommand(newHomeCmd(a))
	cmd.AddCommand(newKindCmd(a, "top", "Show the all-time top anime"))
	cmd.AddCommand(newKindCmd(a, "seasonal", "Show the anime of the current season"))
	cmd.AddCommand(newGenreCmd(a))
	cmd.AddCommand(newProducerCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newExploreCmd(a))
	cmd.AddCommand(newAnimeCmd(a))
	cmd.AddCommand(newEpisodesCmd(a))
	cmd.AddCommand(newGenresCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newFavCmd(a))
	cmd.AddCommand(newCommentsCmd(a))
	cmd.AddCommand(newTorrentsCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newErrorCmd(a))
	return cmd
}

// Execute runs the root command; Ctrl-C cancels in-flight requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd(NewApp()).ExecuteContext(ctx)
	if err != nil {
		if !errors.Is(err, ErrReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
