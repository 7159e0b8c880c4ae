package sources

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/basti564/LauncherIcons/pkg/catalog"
	"github.com/basti564/LauncherIcons/pkg/download"
	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/paginate"
	"github.com/basti564/LauncherIcons/pkg/storefront"
)

const (
	picoSectionURL = "https://appstore-us.picovr.com/api/app/v1/section/info"
	picoItemURL    = "https://appstore-us.picovr.com/api/app/v1/item/info"

	// The store only answers requests that look like they come from
	// the companion app.
	picoUserAgent = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 AppName/picovr_assistant_overseas AppVersion/10.3.0 AppVersionCode/100300 Package/com.picovr.global.AssistantPhone SystemType/iPad OSVersion/17.0"

	picoManifestVersion = "300800000"
	picoDeviceName      = "A8110"
	picoSectionID       = "3"
	picoPageSize        = 20
)

type picoListOptions struct {
	ManifestVersionCode string `url:"manifest_version_code"`
	AppLanguage         string `url:"app_language"`
	Size                int    `url:"size"`
	DeviceName          string `url:"device_name"`
	Page                int    `url:"page"`
	SectionID           string `url:"section_id"`
}

type picoItemOptions struct {
	AppLanguage         string `url:"app_language"`
	DeviceName          string `url:"device_name"`
	ItemID              string `url:"item_id"`
	ManifestVersionCode string `url:"manifest_version_code"`
}

type pico struct {
	logger  log.Logger
	client  *storefront.Client
	workers int

	sectionURL string
	itemURL    string
}

func newPico(cfg Config) *pico {
	return &pico{
		logger:     cfg.logger(),
		workers:    cfg.DetailWorkers,
		client:     cfg.client(storefront.WithUserAgent(cfg.option("user_agent", picoUserAgent))),
		sectionURL: cfg.option("section_url", picoSectionURL),
		itemURL:    cfg.option("item_url", picoItemURL),
	}
}

func (s *pico) Name() string        { return "pico" }
func (s *pico) CatalogFile() string { return "pico_apps.json" }

func (s *pico) Listing() paginate.Source {
	return paginate.Source{
		Name: s.Name(),
		Fetch: func(ctx context.Context, page int) (*paginate.Page, error) {
			res, err := s.client.Post(ctx, s.sectionURL, nil, picoListOptions{
				ManifestVersionCode: picoManifestVersion,
				AppLanguage:         "en",
				Size:                picoPageSize,
				DeviceName:          picoDeviceName,
				Page:                page,
				SectionID:           picoSectionID,
			})
			if err != nil {
				return nil, err
			}
			body, err := storefront.Bytes(res)
			if err != nil {
				return nil, err
			}
			return &paginate.Page{Body: body, Header: res.Header}, nil
		},
		Items: "data.items",
		More:  paginate.MoreFlag("data.has_more"),
		Map: func(_ context.Context, item gjson.Result) (catalog.App, bool) {
			pkg := item.Get("package_name").String()
			if pkg == "" {
				return catalog.App{}, false
			}
			return catalog.App{
				AppName:     item.Get("name").String(),
				PackageName: pkg,
				ID:          item.Get("safe_item_id").String(),
			}, true
		},
	}
}

// Covers asks the item endpoint for each app's square and landscape
// cover and mirrors both as PNG.
func (s *pico) Covers(ctx context.Context, apps catalog.AppList) []download.Task {
	return collectTasks(ctx, s.logger, apps, s.workers, func(ctx context.Context, app catalog.App) ([]download.Task, error) {
		if app.ID == "" {
			s.logger.Debugf("no item id for %s, skipping covers", app.PackageName)
			return nil, nil
		}

		res, err := s.client.Post(ctx, s.itemURL, nil, picoItemOptions{
			AppLanguage:         "en",
			DeviceName:          picoDeviceName,
			ItemID:              app.ID,
			ManifestVersionCode: picoManifestVersion,
		})
		if err != nil {
			return nil, err
		}
		body, err := storefront.Bytes(res)
		if err != nil {
			return nil, err
		}

		cover := gjson.GetBytes(body, "data.cover")
		if !cover.Exists() {
			s.logger.Warnf("no cover info for %s", app.PackageName)
			return nil, nil
		}

		s.logger.Infof("downloading covers for %s", app.PackageName)
		return []download.Task{
			{URL: cover.Get("square").String(), Dest: "pico_square/" + app.PackageName + ".png"},
			{URL: cover.Get("landscape").String(), Dest: "pico_landscape/" + app.PackageName + ".png"},
		}, nil
	})
}
