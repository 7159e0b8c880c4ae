// Package paginate drives paged listing endpoints to exhaustion. Each
// store supplies a Source describing how to fetch one page, where the
// items live in the response, and when to stop.
package paginate

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/basti564/LauncherIcons/pkg/catalog"
	"github.com/basti564/LauncherIcons/pkg/log"
)

// Page is one raw listing response. Header is kept around for stores
// that signal continuation out of band (Link headers).
type Page struct {
	Body   []byte
	Header http.Header
}

// Source describes one paged listing. Pages are numbered from 1.
//
// Items is a gjson path to the array of raw items. A response missing
// that path is treated as malformed and ends the loop early. More
// decides whether another page follows; a page whose items are all
// filtered out is not a termination signal by itself.
type Source struct {
	Name  string
	Fetch func(ctx context.Context, page int) (*Page, error)
	Items string
	More  func(page *Page, n int) bool
	Map   func(ctx context.Context, item gjson.Result) (catalog.App, bool)
}

// MoreFlag terminates on an explicit boolean continuation flag in the
// response body, e.g. "data.has_more".
func MoreFlag(path string) func(page *Page, n int) bool {
	return func(page *Page, n int) bool {
		return gjson.GetBytes(page.Body, path).Bool()
	}
}

// MoreTotalPages keeps going while the page number is below a total
// advertised in the response body, e.g.
// "data.products.page_info.total_pages".
func MoreTotalPages(path string) func(page *Page, n int) bool {
	return func(page *Page, n int) bool {
		total := gjson.GetBytes(page.Body, path).Int()
		return int64(n) < total
	}
}

// Collect fetches pages until the source signals the end of data,
// mapping every usable raw item to a normalized record. A page that
// fails to fetch or is structurally invalid ends the loop with whatever
// was accumulated so far; only ctx cancellation surfaces as an error.
func Collect(ctx context.Context, logger log.Logger, src Source) (catalog.AppList, error) {
	if logger == nil {
		logger = log.Discard
	}

	var apps catalog.AppList
	page := 0
	for {
		page++
		if err := ctx.Err(); err != nil {
			return apps, err
		}

		logger.Infof("fetching %s page %d", src.Name, page)
		res, err := src.Fetch(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return apps, ctx.Err()
			}
			logger.Warnf("error fetching %s page %d: %v", src.Name, page, err)
			return apps, nil
		}

		items := gjson.GetBytes(res.Body, src.Items)
		if !items.Exists() || !items.IsArray() {
			logger.Warnf("no data found on %s page %d", src.Name, page)
			return apps, nil
		}

		kept := 0
		for _, item := range items.Array() {
			app, ok := src.Map(ctx, item)
			if !ok || app.PackageName == "" {
				continue
			}
			apps = append(apps, app)
			kept++
		}
		logger.Debugf("%s page %d yielded %d of %d items", src.Name, page, kept, len(items.Array()))

		if src.More == nil || !src.More(res, page) {
			return apps, nil
		}
	}
}
