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
	vivePageSize = 9999

	viveportGraphURL = "https://www.viveport.com/graphql"
	viveportCMSURL   = "https://www.viveport.com/api/cms/v4/mobiles/a"

	viveBusinessGraphURL = "https://business.vive.com/graphql"
	viveBusinessCMSURL   = "https://business.vive.com/api/cms/v4/mobiles/a"

	viveportListQuery = `
    query getProduct(
    $category_id: String
    $app_type: [String]
    $prod_type: [String]
    $pageSize: Int
    $currentPage: Int
    ) {
    products(
        filter: {
        category_id: { eq: $category_id }
        app_type: { in: $app_type }
        prod_type: { in: $prod_type }
        }
        pageSize: $pageSize
        currentPage: $currentPage
    ) {
        total_count
        page_info {
        total_pages
        }
        items {
        sku
        }
    }
    }`

	viveBusinessListQuery = `
    query getProductAll($pageSize: Int, $currentPage: Int) {
      products(filter: {}, pageSize: $pageSize, currentPage: $currentPage) {
        total_count
        page_info {
          total_pages
        }
        items {
          sku
          deviceType
        }
        __typename
      }
    }`
)

// vive covers both Viveport flavors; they share the catalog schema and
// the CMS detail endpoint, and differ in endpoints, the listing query,
// and an item filter.
type vive struct {
	name        string
	catalogFile string
	dirPrefix   string

	graphURL  string
	cmsURL    string
	variables func(page int) map[string]interface{}
	query     string
	keep      func(item gjson.Result) bool
	detail    func(sku string) interface{}

	logger log.Logger
	client *storefront.Client

	thumbs map[string]gjson.Result
}

func newViveport(cfg Config) *vive {
	return &vive{
		name:        "viveport",
		catalogFile: "viveport_apps.json",
		dirPrefix:   "viveport",
		graphURL:    cfg.option("graph_url", viveportGraphURL),
		cmsURL:      cfg.option("cms_url", viveportCMSURL),
		query:       viveportListQuery,
		variables: func(page int) map[string]interface{} {
			return map[string]interface{}{
				"category_id": 277,
				"app_type":    []string{"5"},
				"prod_type":   []string{"375", "377"},
				"pageSize":    vivePageSize,
				"currentPage": page,
			}
		},
		keep: func(gjson.Result) bool { return true },
		detail: func(sku string) interface{} {
			return map[string]interface{}{
				"app_ids":             []string{sku},
				"show_coming_soon":    true,
				"content_genus":       "all",
				"subscription_only":   1,
				"include_unpublished": true,
			}
		},
		logger: cfg.logger(),
		client: cfg.client(),
		thumbs: make(map[string]gjson.Result),
	}
}

func newViveBusiness(cfg Config) *vive {
	return &vive{
		name:        "vivebusiness",
		catalogFile: "vive_business_apps.json",
		dirPrefix:   "vive_business",
		graphURL:    cfg.option("graph_url", viveBusinessGraphURL),
		cmsURL:      cfg.option("cms_url", viveBusinessCMSURL),
		query:       viveBusinessListQuery,
		variables: func(page int) map[string]interface{} {
			return map[string]interface{}{
				"pageSize":    vivePageSize,
				"currentPage": page,
			}
		},
		keep: func(item gjson.Result) bool {
			// "1_" marks standalone headsets
			return item.Get("deviceType").String() == "1_"
		},
		detail: func(sku string) interface{} {
			return map[string]interface{}{
				"app_ids":      []string{sku},
				"product_type": 5,
				"cnty":         "US",
			}
		},
		logger: cfg.logger(),
		client: cfg.client(),
		thumbs: make(map[string]gjson.Result),
	}
}

func (s *vive) Name() string        { return s.name }
func (s *vive) CatalogFile() string { return s.catalogFile }

// Listing pages through the GraphQL product catalog; each kept sku
// costs one CMS round trip to learn its package name and thumbnails.
func (s *vive) Listing() paginate.Source {
	return paginate.Source{
		Name: s.name,
		Fetch: func(ctx context.Context, page int) (*paginate.Page, error) {
			body, err := s.client.GraphQL(ctx, s.graphURL, s.query, s.variables(page))
			if err != nil {
				return nil, err
			}
			return &paginate.Page{Body: body}, nil
		},
		Items: "data.products.items",
		More:  paginate.MoreTotalPages("data.products.page_info.total_pages"),
		Map:   s.mapItem,
	}
}

func (s *vive) mapItem(ctx context.Context, item gjson.Result) (catalog.App, bool) {
	if !s.keep(item) {
		return catalog.App{}, false
	}

	sku := item.Get("sku").String()
	if sku == "" {
		return catalog.App{}, false
	}

	appData, err := s.fetchDetail(ctx, sku)
	if err != nil {
		s.logger.Errorf("detail lookup for %s: %v", sku, err)
		return catalog.App{}, false
	}

	pkg := appData.Get("package_name").String()
	if pkg == "" {
		return catalog.App{}, false
	}

	s.thumbs[pkg] = appData.Get("thumbnails")

	id := appData.Get("id").String()
	if id == "" {
		id = sku
	}

	return catalog.App{
		AppName:     appData.Get("title").String(),
		PackageName: pkg,
		ID:          id,
	}, true
}

func (s *vive) fetchDetail(ctx context.Context, sku string) (gjson.Result, error) {
	res, err := s.client.Post(ctx, s.cmsURL, s.detail(sku), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	body, err := storefront.Bytes(res)
	if err != nil {
		return gjson.Result{}, err
	}

	return gjson.GetBytes(body, "contents.0.apps.0"), nil
}

// Covers mirrors the four thumbnail sizes re-encoded as WEBP.
func (s *vive) Covers(_ context.Context, apps catalog.AppList) []download.Task {
	var tasks []download.Task
	for _, app := range apps {
		thumbs, ok := s.thumbs[app.PackageName]
		if !ok || !thumbs.Exists() {
			s.logger.Debugf("no thumbnails for %s", app.PackageName)
			continue
		}

		for _, variant := range []string{"small", "medium", "large", "square"} {
			url := thumbs.Get(variant + ".url").String()
			tasks = append(tasks, download.Task{
				URL:    url,
				Dest:   s.dirPrefix + "_" + variant + "/" + app.PackageName + ".webp",
				Encode: download.WEBP,
			})
		}
	}
	return tasks
}
