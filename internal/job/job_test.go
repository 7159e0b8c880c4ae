package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/basti564/LauncherIcons/internal/config"
	"github.com/basti564/LauncherIcons/pkg/catalog"
	"github.com/basti564/LauncherIcons/pkg/download"
	"github.com/basti564/LauncherIcons/pkg/paginate"
)

type fakeSource struct {
	apps   catalog.AppList
	covers func(catalog.AppList) []download.Task
}

func (s *fakeSource) Name() string        { return "fake" }
func (s *fakeSource) CatalogFile() string { return "fake_apps.json" }

func (s *fakeSource) Listing() paginate.Source {
	return paginate.Source{
		Name: "fake",
		Fetch: func(context.Context, int) (*paginate.Page, error) {
			body, err := json.Marshal(s.apps)
			if err != nil {
				return nil, err
			}
			return &paginate.Page{Body: append(append([]byte(`{"items":`), body...), '}')}, nil
		},
		Items: "items",
		Map: func(_ context.Context, item gjson.Result) (catalog.App, bool) {
			return catalog.App{
				AppName:     item.Get("appName").String(),
				PackageName: item.Get("packageName").String(),
				ID:          item.Get("id").String(),
			}, true
		},
	}
}

func (s *fakeSource) Covers(_ context.Context, apps catalog.AppList) []download.Task {
	if s.covers == nil {
		return nil
	}
	return s.covers(apps)
}

func TestJobMergesAndDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "image-bytes")
	}))
	defer srv.Close()

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "fake_apps.json",
		[]byte(`[{"appName":"Old","packageName":"com.example.old","id":"1"}]`), 0644))

	src := &fakeSource{
		apps: catalog.AppList{{AppName: "New", PackageName: "com.example.new", ID: "2"}},
		covers: func(apps catalog.AppList) []download.Task {
			var tasks []download.Task
			for _, app := range apps {
				tasks = append(tasks, download.Task{URL: srv.URL, Dest: "fake/" + app.PackageName + ".png"})
			}
			return tasks
		},
	}

	j := &Job{FS: fs, Source: src, Runtime: config.Runtime{Workers: 2}}
	require.NoError(t, j.Run(context.Background()))

	saved, err := catalog.Load(fs, "fake_apps.json")
	require.NoError(t, err)
	require.Equal(t, catalog.AppList{
		{AppName: "Old", PackageName: "com.example.old", ID: "1"},
		{AppName: "New", PackageName: "com.example.new", ID: "2"},
	}, saved)

	data, err := util.ReadFile(fs, "fake/com.example.new.png")
	require.NoError(t, err)
	require.Equal(t, "image-bytes", string(data))
}

type saveFailFS struct {
	billy.Filesystem
}

func (f saveFailFS) Create(name string) (billy.File, error) {
	if strings.HasSuffix(name, ".json") {
		return nil, errors.New("disk full")
	}
	return f.Filesystem.Create(name)
}

func TestJobDownloadsCoversDespiteSaveFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, "image-bytes")
	}))
	defer srv.Close()

	fs := saveFailFS{memfs.New()}
	src := &fakeSource{
		apps: catalog.AppList{{AppName: "New", PackageName: "com.example.new", ID: "2"}},
		covers: func(apps catalog.AppList) []download.Task {
			var tasks []download.Task
			for _, app := range apps {
				tasks = append(tasks, download.Task{URL: srv.URL, Dest: "fake/" + app.PackageName + ".png"})
			}
			return tasks
		},
	}

	j := &Job{FS: fs, Source: src, Runtime: config.Runtime{Workers: 2}}
	require.NoError(t, j.Run(context.Background()))

	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	data, err := util.ReadFile(fs, "fake/com.example.new.png")
	require.NoError(t, err)
	require.Equal(t, "image-bytes", string(data))
}

func TestJobDryRunWritesNothing(t *testing.T) {
	fs := memfs.New()
	src := &fakeSource{apps: catalog.AppList{{AppName: "New", PackageName: "com.example.new", ID: "2"}}}

	j := &Job{FS: fs, Source: src, Runtime: config.Runtime{DryRun: true}}
	require.NoError(t, j.Run(context.Background()))

	_, err := fs.Stat("fake_apps.json")
	require.Error(t, err)
}

func TestJobFailsOnCorruptCatalog(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "fake_apps.json", []byte("{not json"), 0644))

	j := &Job{FS: fs, Source: &fakeSource{}}
	require.Error(t, j.Run(context.Background()))
}
