package sources

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/basti564/LauncherIcons/pkg/catalog"
	"github.com/basti564/LauncherIcons/pkg/download"
	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/paginate"
	"github.com/basti564/LauncherIcons/pkg/storefront"
)

const (
	oculusGraphURL = "https://graph.oculus.com/graphql"

	// Anonymous client tokens baked into the web store.
	oculusAccessToken = "OC|1076686279105243|"
	oculusBinaryToken = "OC|1317831034909742|"

	oculusSectionDocID = "4743589559102018"
	oculusDetailDocID  = "3828663700542720"

	oculusSectionItemCount = 1000

	oculusBinaryInfoQuery = `query ($params: AppBinaryInfoArgs!) { app_binary_info(args: $params) { info { binary { ... on AndroidBinary { id package_name version_code asset_files { edges { node { ... on AssetFile { file_name uri size } } } } } } } } }`
)

// The Quest store sections worth mirroring (store + app lab).
var oculusSectionIDs = []string{"1888816384764129", "174868819587665"}

type oculusDocOptions struct {
	AccessToken  string `url:"access_token"`
	DocID        string `url:"doc_id"`
	Variables    string `url:"variables"`
	ForcedLocale string `url:"forced_locale,omitempty"`
}

type oculusQueryOptions struct {
	AccessToken string `url:"access_token"`
	Doc         string `url:"doc"`
	Variables   string `url:"variables"`
}

type oculusCovers struct {
	landscape string
	portrait  string
	square    string
}

type oculus struct {
	logger      log.Logger
	client      *storefront.Client
	graphURL    string
	accessToken string
	binaryToken string

	// cover URLs seen while walking the listing, keyed by package
	// name. The listing mapper runs on a single goroutine, so plain
	// map access is fine.
	covers map[string]oculusCovers
}

func newOculus(cfg Config) *oculus {
	return &oculus{
		logger:      cfg.logger(),
		client:      cfg.client(),
		graphURL:    cfg.option("graph_url", oculusGraphURL),
		accessToken: cfg.option("access_token", oculusAccessToken),
		binaryToken: cfg.option("binary_access_token", oculusBinaryToken),
		covers:      make(map[string]oculusCovers),
	}
}

func (s *oculus) Name() string        { return "oculus" }
func (s *oculus) CatalogFile() string { return "oculus_apps.json" }

// Listing walks the configured store sections one "page" per section.
// Resolving an edge to a record takes two more GraphQL round trips:
// the release channel for the latest binary, then the binary info for
// the package name.
func (s *oculus) Listing() paginate.Source {
	return paginate.Source{
		Name: s.Name(),
		Fetch: func(ctx context.Context, page int) (*paginate.Page, error) {
			variables, err := json.Marshal(map[string]interface{}{
				"sectionId":        oculusSectionIDs[page-1],
				"sortOrder":        nil,
				"sectionItemCount": oculusSectionItemCount,
			})
			if err != nil {
				return nil, err
			}

			res, err := s.client.Get(ctx, s.graphURL, oculusDocOptions{
				AccessToken:  s.accessToken,
				DocID:        oculusSectionDocID,
				Variables:    string(variables),
				ForcedLocale: "en_US",
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
		Items: "data.node.all_items.edges",
		More: func(_ *paginate.Page, n int) bool {
			return n < len(oculusSectionIDs)
		},
		Map: s.mapEdge,
	}
}

func (s *oculus) mapEdge(ctx context.Context, edge gjson.Result) (catalog.App, bool) {
	node := edge.Get("node")
	id := node.Get("id").String()
	if id == "" {
		return catalog.App{}, false
	}

	versionCode, err := s.latestVersionCode(ctx, id)
	if err != nil {
		s.logger.Errorf("detail lookup for %s: %v", id, err)
		return catalog.App{}, false
	}
	if versionCode == "" {
		// nothing released on this channel
		return catalog.App{}, false
	}

	pkg, err := s.packageName(ctx, id, versionCode)
	if err != nil {
		s.logger.Errorf("binary info for %s: %v", id, err)
		return catalog.App{}, false
	}
	if pkg == "" {
		return catalog.App{}, false
	}

	s.covers[pkg] = oculusCovers{
		landscape: node.Get("cover_landscape_image.uri").String(),
		portrait:  node.Get("cover_portrait_image.uri").String(),
		square:    node.Get("cover_square_image.uri").String(),
	}

	return catalog.App{
		AppName:     node.Get("display_name").String(),
		PackageName: pkg,
		ID:          id,
	}, true
}

func (s *oculus) latestVersionCode(ctx context.Context, appID string) (string, error) {
	variables, err := json.Marshal(map[string]string{"applicationID": appID})
	if err != nil {
		return "", err
	}

	res, err := s.client.Get(ctx, s.graphURL, oculusDocOptions{
		AccessToken: s.accessToken,
		DocID:       oculusDetailDocID,
		Variables:   string(variables),
	})
	if err != nil {
		return "", err
	}
	body, err := storefront.Bytes(res)
	if err != nil {
		return "", err
	}

	binary := gjson.GetBytes(body, "data.node.release_channels.nodes.0.latest_supported_binary")
	if !binary.Exists() {
		return "", errors.New("missing release channel info")
	}
	return binary.Get("version_code").String(), nil
}

func (s *oculus) packageName(ctx context.Context, appID, versionCode string) (string, error) {
	variables, err := json.Marshal(map[string]interface{}{
		"params": map[string]interface{}{
			"app_params": []map[string]string{
				{"app_id": appID, "version_code": versionCode},
			},
		},
	})
	if err != nil {
		return "", err
	}

	res, err := s.client.Get(ctx, s.graphURL, oculusQueryOptions{
		AccessToken: s.binaryToken,
		Doc:         oculusBinaryInfoQuery,
		Variables:   string(variables),
	})
	if err != nil {
		return "", err
	}
	body, err := storefront.Bytes(res)
	if err != nil {
		return "", err
	}

	return gjson.GetBytes(body, "data.app_binary_info.info.0.binary.package_name").String(), nil
}

// Covers mirrors the three aspect variants captured during the listing
// walk as JPEG. Catalog entries that were not part of this run's
// listing have no known cover URLs and are skipped.
func (s *oculus) Covers(_ context.Context, apps catalog.AppList) []download.Task {
	var tasks []download.Task
	for _, app := range apps {
		c, ok := s.covers[app.PackageName]
		if !ok {
			s.logger.Debugf("no listing covers for %s", app.PackageName)
			continue
		}

		tasks = append(tasks,
			download.Task{URL: c.landscape, Dest: "oculus_landscape/" + app.PackageName + ".jpg"},
			download.Task{URL: c.portrait, Dest: "oculus_portrait/" + app.PackageName + ".jpg"},
			download.Task{URL: c.square, Dest: "oculus_square/" + app.PackageName + ".jpg"},
		)
	}
	return tasks
}
