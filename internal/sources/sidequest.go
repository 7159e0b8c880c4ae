package sources

import (
	"context"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/basti564/LauncherIcons/pkg/catalog"
	"github.com/basti564/LauncherIcons/pkg/download"
	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/paginate"
	"github.com/basti564/LauncherIcons/pkg/storefront"
)

const (
	sideQuestAppsURL  = "https://api.sidequestvr.com/v2/apps"
	sideQuestPageSize = 100
)

type sideQuestListOptions struct {
	Limit int `url:"limit"`
}

type sideQuest struct {
	logger  log.Logger
	client  *storefront.Client
	appsURL string

	// next holds the Link rel="next" URL of the last fetched page;
	// empty once the listing is exhausted.
	next string

	images map[string]string
}

func newSideQuest(cfg Config) *sideQuest {
	return &sideQuest{
		logger:  cfg.logger(),
		client:  cfg.client(),
		appsURL: cfg.option("apps_url", sideQuestAppsURL),
		images:  make(map[string]string),
	}
}

func (s *sideQuest) Name() string        { return "sidequest" }
func (s *sideQuest) CatalogFile() string { return "sidequest_apps.json" }

// Listing walks the REST listing by following the Link response header
// rather than a page counter.
func (s *sideQuest) Listing() paginate.Source {
	return paginate.Source{
		Name: "sidequest",
		Fetch: func(ctx context.Context, page int) (*paginate.Page, error) {
			var (
				resp *paginate.Page
				err  error
			)
			if page == 1 {
				resp, err = s.fetch(ctx, s.appsURL, sideQuestListOptions{Limit: sideQuestPageSize})
			} else {
				resp, err = s.fetch(ctx, s.next, nil)
			}
			if err != nil {
				return nil, err
			}
			s.next = storefront.NextPageURL(resp.Header)
			return resp, nil
		},
		Items: "data",
		More: func(*paginate.Page, int) bool {
			return s.next != ""
		},
		Map: s.mapItem,
	}
}

func (s *sideQuest) fetch(ctx context.Context, rawurl string, options interface{}) (*paginate.Page, error) {
	res, err := s.client.Get(ctx, rawurl, options)
	if err != nil {
		return nil, err
	}
	header := res.Header
	body, err := storefront.Bytes(res)
	if err != nil {
		return nil, err
	}
	return &paginate.Page{Body: body, Header: header}, nil
}

func (s *sideQuest) mapItem(_ context.Context, item gjson.Result) (catalog.App, bool) {
	pkg := item.Get("packagename").String()
	if pkg == "" {
		return catalog.App{}, false
	}

	if url := item.Get("image_url").String(); url != "" {
		s.images[pkg] = url
	}

	return catalog.App{
		AppName:     item.Get("name").String(),
		PackageName: pkg,
		ID:          strconv.FormatInt(item.Get("apps_id").Int(), 10),
	}, true
}

// Covers uses the image URLs remembered during the listing walk; only
// one landscape banner is published per app.
func (s *sideQuest) Covers(_ context.Context, apps catalog.AppList) []download.Task {
	var tasks []download.Task
	for _, app := range apps {
		url, ok := s.images[app.PackageName]
		if !ok {
			s.logger.Debugf("no image for %s", app.PackageName)
			continue
		}
		tasks = append(tasks, download.Task{
			URL:    url,
			Dest:   "sidequest_landscape/" + app.PackageName + ".webp",
			Encode: download.WEBP,
		})
	}
	return tasks
}
