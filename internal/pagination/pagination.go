// Package pagination turns a Jikan pagination block into page buttons.
package pagination

import (
	"strconv"

	"github.com/example/aninfo/internal/jikan"
)

type Button struct {
	Page     int
	Label    string
	Selected bool
}

// Buttons returns one button per page 1..last_visible_page in ascending
// order, with the button for current selected. A single page (or a
// malformed block) yields no buttons.
func Buttons(p jikan.Pagination, current int) []Button {
	last := p.LastVisiblePage
	if last <= 1 {
		return nil
	}
	out := make([]Button, last)
	for i := range out {
		page := i + 1
		out[i] = Button{Page: page, Label: strconv.Itoa(page), Selected: page == current}
	}
	return out
}

// Window keeps at most width buttons, centred on the selected one when
// possible. width <= 0 returns buttons unchanged.
func Window(buttons []Button, width int) []Button {
	if width <= 0 || len(buttons) <= width {
		return buttons
	}
	sel := 0
	for i, b := range buttons {
		if b.Selected {
			sel = i
			break
		}
	}
	start := sel - width/2
	start = max(start, 0)
	start = min(start, len(buttons)-width)
	return buttons[start : start+width]
}
