package nyaa

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/aninfo/internal/contract"
)

// ParseResults reads the torrent-list table of a nyaa listing page.
// Relative links are resolved against base.
func ParseResults(r io.Reader, base string) ([]contract.Torrent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("nyaa: parse html: %w", err)
	}
	base = strings.TrimRight(base, "/")

	out := []contract.Torrent{}
	doc.Find("table.torrent-list tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}

		var title, view string
		cells.Eq(1).Find("a").Each(func(_ int, a *goquery.Selection) {
			if a.HasClass("comments") {
				return
			}
			href, _ := a.Attr("href")
			if !strings.HasPrefix(href, "/view/") {
				return
			}
			title = strings.TrimSpace(a.AttrOr("title", a.Text()))
			view = base + href
		})
		if title == "" {
			return
		}

		t := contract.Torrent{Title: title, LinkView: view}
		cells.Eq(2).Find("a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			switch {
			case strings.HasPrefix(href, "magnet:"):
				t.LinkMagnet = href
			case strings.HasSuffix(href, ".torrent"):
				if strings.HasPrefix(href, "/") {
					href = base + href
				}
				t.LinkTorrent = href
			}
		})
		t.SizeMB = SizeMB(strings.TrimSpace(cells.Eq(3).Text()))
		t.Download = strings.TrimSpace(cells.Eq(7).Text())
		out = append(out, t)
	})
	return out, nil
}

var sizeUnits = map[string]float64{
	"B":     1.0 / (1024 * 1024),
	"Bytes": 1.0 / (1024 * 1024),
	"KiB":   1.0 / 1024,
	"MiB":   1,
	"GiB":   1024,
	"TiB":   1024 * 1024,
}

// SizeMB converts a listing size such as "1.4 GiB" to megabytes with one
// decimal. Unparseable input is returned unchanged.
func SizeMB(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return raw
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return raw
	}
	mul, ok := sizeUnits[fields[1]]
	if !ok {
		return raw
	}
	return strconv.FormatFloat(n*mul, 'f', 1, 64)
}
