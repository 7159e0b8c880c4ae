// Package catalog holds the normalized per-store app catalogs and the
// merge rules that keep already-mirrored entries stable across runs.
package catalog

import (
	"encoding/json"
	"io"
	"os"
	"path"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"

	"github.com/basti564/LauncherIcons/pkg/log"
)

// App is one normalized store entry. PackageName is the dedup key and
// is never empty for a valid record; AppName and ID may be.
type App struct {
	AppName     string `json:"appName"`
	PackageName string `json:"packageName"`
	ID          string `json:"id"`
}

type AppList []App

// Load reads a catalog file. A missing file yields an empty list; a
// file that exists but does not parse is an error.
func Load(fs billy.Filesystem, name string) (AppList, error) {
	fp, err := fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	defer func() { _ = fp.Close() }()

	data, err := io.ReadAll(fp)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}

	var apps AppList
	if err := json.Unmarshal(data, &apps); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", name)
	}

	return apps, nil
}

// Save overwrites the catalog file with the full list as a JSON array.
func Save(fs billy.Filesystem, name string, apps AppList) error {
	if apps == nil {
		apps = AppList{}
	}

	data, err := json.Marshal(apps)
	if err != nil {
		return err
	}

	if dir := path.Dir(name); dir != "." {
		if err := fs.MkdirAll(dir, 0777); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}

	fp, err := fs.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}

	_, err = fp.Write(data)
	if cErr := fp.Close(); err == nil {
		err = cErr
	}
	return errors.Wrapf(err, "writing %s", name)
}

// Merge combines an existing catalog with freshly fetched records.
// Existing entries always win; incoming records are appended, in their
// given order, only when their packageName has not been seen before.
// Records without a packageName are dropped.
func Merge(existing, incoming AppList, logger log.Logger) AppList {
	if logger == nil {
		logger = log.Discard
	}

	seen := hashset.New()
	merged := make(AppList, 0, len(existing)+len(incoming))
	for _, app := range existing {
		seen.Add(app.PackageName)
		merged = append(merged, app)
	}

	for _, app := range incoming {
		if app.PackageName == "" {
			continue
		}
		if seen.Contains(app.PackageName) {
			continue
		}

		logger.Infof("MISSING: %s (%s)", app.PackageName, app.AppName)
		seen.Add(app.PackageName)
		merged = append(merged, app)
	}

	return merged
}
