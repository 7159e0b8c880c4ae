// Package sources holds the per-store adapters. Each adapter owns its
// endpoints, request shapes, raw-item mapping, and cover-art layout;
// everything else (pagination, merging, downloading) is generic.
package sources

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/basti564/LauncherIcons/pkg/catalog"
	"github.com/basti564/LauncherIcons/pkg/download"
	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/paginate"
	"github.com/basti564/LauncherIcons/pkg/storefront"
)

type Source interface {
	// Name is the short store identifier ("pico", "oculus", ...).
	Name() string

	// CatalogFile is the per-store catalog filename, e.g.
	// "pico_apps.json".
	CatalogFile() string

	// Listing describes the paged app listing for this store.
	Listing() paginate.Source

	// Covers derives the cover-art download tasks for the given
	// (already merged) catalog. Per-app detail lookups that fail are
	// logged and skipped; they never abort the whole derivation.
	Covers(ctx context.Context, apps catalog.AppList) []download.Task
}

// Config is everything an adapter needs at construction time.
type Config struct {
	Logger        log.Logger
	Options       map[string]string
	ClientOptions []storefront.Option

	// DetailWorkers bounds the parallel per-app detail lookups some
	// stores need before a cover URL is known.
	DetailWorkers int
}

func (cfg Config) logger() log.Logger {
	if cfg.Logger == nil {
		return log.Discard
	}
	return cfg.Logger
}

func (cfg Config) option(key, fallback string) string {
	if v, ok := cfg.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (cfg Config) client(extra ...storefront.Option) *storefront.Client {
	options := append([]storefront.Option{storefront.WithLogger(cfg.Logger)}, cfg.ClientOptions...)
	return storefront.New(append(options, extra...)...)
}

// New constructs the adapter for a store name from internal/config.
func New(name string, cfg Config) (Source, error) {
	switch name {
	case "pico":
		return newPico(cfg), nil
	case "oculus":
		return newOculus(cfg), nil
	case "viveport":
		return newViveport(cfg), nil
	case "vivebusiness":
		return newViveBusiness(cfg), nil
	case "sidequest":
		return newSideQuest(cfg), nil
	default:
		return nil, errors.Errorf("unknown source %q", name)
	}
}

// collectTasks fans per-app work out over a small pool and gathers the
// produced download tasks. fn errors are logged, not propagated; a
// single app's bad detail response must not sink the rest.
func collectTasks(
	ctx context.Context,
	logger log.Logger,
	apps catalog.AppList,
	workers int,
	fn func(ctx context.Context, app catalog.App) ([]download.Task, error),
) []download.Task {
	if workers < 1 {
		workers = download.DefaultWorkers
	}

	ch := make(chan catalog.App)
	go func() {
		defer close(ch)
		for _, app := range apps {
			select {
			case <-ctx.Done():
				return
			case ch <- app:
			}
		}
	}()

	var (
		mu    sync.Mutex
		tasks []download.Task
		wg    sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for app := range ch {
				t, err := fn(ctx, app)
				if err != nil {
					logger.Errorf("covers for %s: %v", app.PackageName, err)
					continue
				}
				mu.Lock()
				tasks = append(tasks, t...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return tasks
}
