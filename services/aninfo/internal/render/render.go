// Package render writes views to a terminal with lipgloss styles.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/aninfo/internal/apperr"
	"github.com/example/aninfo/internal/appstate"
	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/jikan"
	"github.com/example/aninfo/internal/pagination"
	"github.com/example/aninfo/internal/present"
	"github.com/example/aninfo/internal/query"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// pageButtons is how many page buttons fit in one row.
const pageButtons = 9

type Renderer struct {
	w     io.Writer
	lang  appstate.Language
	width int
	st    styles
}

func New(w io.Writer, prefs appstate.Preferences, width int) *Renderer {
	r := lipgloss.NewRenderer(w)
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{
		w:     w,
		lang:  prefs.Language,
		width: width,
		st:    newStyles(r, paletteFor(r, prefs.Theme)),
	}
}

func (r *Renderer) println(parts ...string) {
	fmt.Fprintln(r.w, strings.Join(parts, ""))
}

func (r *Renderer) title(a jikan.Anime) string {
	return present.Title(a, r.lang)
}

func derefOr[T any](p *T, def string, format func(T) string) string {
	if p == nil {
		return def
	}
	return format(*p)
}

// scoreStyle colours a score by band.
func (r *Renderer) scoreStyle(score *jikan.Score) lipgloss.Style {
	if score == nil {
		return r.st.dim
	}
	f, err := strconv.ParseFloat(string(*score), 64)
	switch {
	case err != nil:
		return r.st.dim
	case f >= 7:
		return r.st.good
	case f >= 5:
		return r.st.warn
	default:
		return r.st.bad
	}
}

func (r *Renderer) animeLine(a jikan.Anime, fav bool) string {
	marker := "  "
	if fav {
		marker = r.st.accent.Render("♥ ")
	}
	name := r.title(a)
	if present.Condense(name, r.lang, true) == present.CondensedMore {
		name = truncate(name, 48)
	}

	score := derefOr(a.Score, "N/A", func(s jikan.Score) string { return string(s) })
	meta := []string{derefOr(a.Type, "?", func(s string) string { return s })}
	meta = append(meta, derefOr(a.Episodes, "? eps", func(n uint16) string { return fmt.Sprintf("%d eps", n) }))
	if a.Year != nil {
		meta = append(meta, strconv.FormatUint(uint64(*a.Year), 10))
	}

	return marker +
		r.st.dim.Render(fmt.Sprintf("%-7d ", a.MalID)) +
		r.st.text.Render(name) + "  " +
		r.scoreStyle(a.Score).Render("★ "+score+present.RatingSuffix(a.ScoredBy)) + "  " +
		r.st.dim.Render(strings.Join(meta, " · "))
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

// List renders one page of anime followed by its page buttons. isFav may be
// nil.
func (r *Renderer) List(heading string, res jikan.QueryResult, current int, isFav func(int32) bool) {
	r.println(r.st.title.Render(heading))
	if len(res.Data) == 0 {
		r.println(r.st.dim.Render("No results."))
	}
	for _, a := range res.Data {
		r.println(r.animeLine(a, isFav != nil && isFav(int32(a.MalID))))
	}
	if line := r.Pages(res.Pagination, current); line != "" {
		r.println()
		r.println(line)
	}
}

// Pages renders the page buttons; the current page is bracketed.
func (r *Renderer) Pages(p jikan.Pagination, current int) string {
	buttons := pagination.Window(pagination.Buttons(p, current), pageButtons)
	if len(buttons) == 0 {
		return ""
	}
	parts := make([]string, 0, len(buttons)+2)
	if buttons[0].Page > 1 {
		parts = append(parts, r.st.page.Render("…"))
	}
	for _, b := range buttons {
		if b.Selected {
			parts = append(parts, r.st.selected.Render("["+b.Label+"]"))
			continue
		}
		parts = append(parts, r.st.page.Render(b.Label))
	}
	if last := buttons[len(buttons)-1].Page; last < p.LastVisiblePage {
		parts = append(parts, r.st.page.Render(fmt.Sprintf("… %d", p.LastVisiblePage)))
	}
	return strings.Join(parts, " ")
}

// Home renders the current season and the all-time top list.
func (r *Renderer) Home(h jikan.Home, now time.Time, isFav func(int32) bool) {
	r.List("Seasonal anime: "+present.SeasonLabel(now), jikan.QueryResult{Data: h.Seasonal.Data}, 0, isFav)
	r.println()
	r.List("Top anime", jikan.QueryResult{Data: h.Top.Data}, 0, isFav)
}

func names(objs []jikan.MALObject) string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Name
	}
	return strings.Join(out, ", ")
}

func (r *Renderer) field(label, value string) {
	if value == "" {
		return
	}
	r.println(r.st.dim.Render(fmt.Sprintf("%-12s", label)), r.st.text.Render(value))
}

// Details renders the detail view of one anime.
func (r *Renderer) Details(d jikan.Details, fav bool) {
	a := d.Anime.Anime
	head := r.title(a)
	if fav {
		head += " ♥"
	}
	r.println(r.st.title.Render(head))
	if alt := a.DefaultTitle(); alt != "" && alt != r.title(a) {
		r.println(r.st.dim.Render(alt))
	}
	r.println()

	r.field("MAL ID", strconv.FormatUint(a.MalID, 10))
	r.field("Score", derefOr(a.Score, "N/A", func(s jikan.Score) string { return string(s) })+present.RatingSuffix(a.ScoredBy))
	r.field("Rank", derefOr(a.Rank, "", func(n uint32) string { return "#" + strconv.FormatUint(uint64(n), 10) }))
	r.field("Popularity", derefOr(a.Popularity, "", func(n uint32) string { return "#" + strconv.FormatUint(uint64(n), 10) }))
	r.field("Type", derefOr(a.Type, "", func(s string) string { return s }))
	r.field("Status", derefOr(a.Status, "", jikan.Status.String))
	if d.TotalEpisodes > 0 {
		r.field("Episodes", strconv.Itoa(d.TotalEpisodes))
	}
	r.field("Season", seasonYear(a))
	r.field("Source", derefOr(a.Source, "", func(s string) string { return s }))
	r.field("Studios", names(a.Studios))
	r.field("Genres", names(a.Genres))
	r.field("Themes", names(a.Themes))

	if a.Synopsis != nil && *a.Synopsis != "" {
		r.println()
		r.println(r.st.heading.Render("Synopsis"))
		r.println(r.st.text.Width(r.width).Render(*a.Synopsis))
	}

	r.songs("Openings", d.Anime.Theme.Openings)
	r.songs("Endings", d.Anime.Theme.Endings)

	if len(d.Characters) > 0 {
		r.println()
		r.println(r.st.heading.Render("Characters"))
		for _, c := range d.Characters[:min(len(d.Characters), 10)] {
			r.println("  ", r.st.text.Render(c.Character.Name), r.st.dim.Render(" ("+c.Role+")"))
		}
	}
	if len(d.Recommendations) > 0 {
		r.println()
		r.println(r.st.heading.Render("Recommendations"))
		for _, rec := range d.Recommendations[:min(len(d.Recommendations), 10)] {
			r.println("  ", r.st.dim.Render(fmt.Sprintf("%-7d ", rec.Entry.MalID)), r.st.text.Render(rec.Entry.Title))
		}
	}
}

func seasonYear(a jikan.Anime) string {
	var parts []string
	if a.Season != nil && *a.Season != "" {
		parts = append(parts, strings.ToUpper((*a.Season)[:1])+(*a.Season)[1:])
	}
	if a.Year != nil {
		parts = append(parts, strconv.FormatUint(uint64(*a.Year), 10))
	}
	return strings.Join(parts, " ")
}

func (r *Renderer) songs(heading string, raw []string) {
	if len(raw) == 0 {
		return
	}
	r.println()
	r.println(r.st.heading.Render(heading))
	for _, s := range raw {
		song, err := present.ParseThemeSong(s)
		if err != nil {
			r.println("  ", r.st.text.Render(s))
			continue
		}
		line := r.st.text.Render(song.Title) + r.st.dim.Render(" by "+song.Artist)
		if song.Eps != nil {
			line += r.st.dim.Render(" (eps " + *song.Eps + ")")
		}
		yt, _ := song.SearchLinks()
		r.println("  ", line)
		r.println("    ", r.st.accent.Render(yt))
	}
}

// Episodes renders one page of the episode list.
func (r *Renderer) Episodes(p jikan.EpisodePage, current int) {
	r.println(r.st.title.Render("Episodes"))
	if len(p.Data) == 0 {
		r.println(r.st.dim.Render("No episodes."))
	}
	for _, ep := range p.Data {
		aired := ""
		if ep.Aired != nil && len(*ep.Aired) >= 10 {
			aired = (*ep.Aired)[:10]
		}
		r.println(r.st.dim.Render(fmt.Sprintf("%4d  ", ep.MalID)), r.st.text.Render(present.EpisodeTitle(ep, r.lang)), "  ", r.st.dim.Render(aired))
	}
	pg := jikan.Pagination{LastVisiblePage: p.Pagination.LastVisiblePage, HasNextPage: p.Pagination.HasNextPage}
	if line := r.Pages(pg, current); line != "" {
		r.println()
		r.println(line)
	}
}

func (r *Renderer) Genres(gs []query.Genre) {
	r.println(r.st.title.Render("Genres"))
	for _, g := range gs {
		count := ""
		if g.Count > 0 {
			count = fmt.Sprintf(" (%d)", g.Count)
		}
		r.println(r.st.dim.Render(fmt.Sprintf("%4d  ", g.MalID)), r.st.text.Render(g.Name), r.st.dim.Render(count))
	}
}

func (r *Renderer) Comments(cs []contract.CommentGet) {
	r.println(r.st.title.Render("Comments"))
	if len(cs) == 0 {
		r.println(r.st.dim.Render("No comments yet."))
		return
	}
	for _, c := range cs {
		r.println(r.st.accent.Render(c.Username), r.st.dim.Render("  "+c.Date))
		r.println(r.st.text.Width(r.width).Render(c.Comment))
		r.println()
	}
}

func (r *Renderer) Torrents(ts []contract.Torrent) {
	r.println(r.st.title.Render("Torrents"))
	if len(ts) == 0 {
		r.println(r.st.dim.Render("No torrents found."))
		return
	}
	for _, t := range ts {
		r.println(r.st.text.Render(t.Title))
		r.println("  ", r.st.dim.Render(fmt.Sprintf("%s MB · %s downloads", t.SizeMB, t.Download)))
		if t.LinkMagnet != "" {
			r.println("  ", r.st.accent.Render(t.LinkMagnet))
		}
		if t.LinkTorrent != "" {
			r.println("  ", r.st.dim.Render(t.LinkTorrent))
		}
	}
}

// User renders a profile and its favourites.
func (r *Renderer) User(u contract.UserResponse) {
	r.println(r.st.title.Render(u.Username), r.st.dim.Render(fmt.Sprintf("  (id %d)", u.UUID)))
	r.Favourites(u.FavAnime)
}

func (r *Renderer) Favourites(favs []contract.UserAnime) {
	r.println(r.st.heading.Render("Favourites"))
	if len(favs) == 0 {
		r.println(r.st.dim.Render("No favourites yet."))
		return
	}
	for _, f := range favs {
		name := f.AnimeTtlEn
		if r.lang == appstate.JP && f.AnimeTtlJp != nil && *f.AnimeTtlJp != "" {
			name = *f.AnimeTtlJp
		}
		r.println(r.st.dim.Render(fmt.Sprintf("%-7d ", f.AnimeID)), r.st.text.Render(name))
	}
}

// Error renders an error page: the kind's title, the message and the
// redirect notice.
func (r *Renderer) Error(e *apperr.Error) {
	if e == nil {
		return
	}
	body := r.st.bad.Bold(true).Render(e.Title()) + "\n" +
		r.st.text.Width(r.width-4).Render(e.Message) + "\n" +
		r.st.dim.Render(apperr.RedirectNotice)
	r.println(r.st.errBox.Render(body))
}

// Message prints a one-line confirmation.
func (r *Renderer) Message(msg string) {
	r.println(r.st.good.Render(msg))
}
