// Package job runs the full update cycle for a single store: load the
// existing catalog, walk the listing, merge, persist, then mirror the
// cover art.
package job

import (
	"context"
	"net/http"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"

	"github.com/basti564/LauncherIcons/internal/config"
	"github.com/basti564/LauncherIcons/internal/sources"
	"github.com/basti564/LauncherIcons/pkg/catalog"
	"github.com/basti564/LauncherIcons/pkg/download"
	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/paginate"
	"github.com/basti564/LauncherIcons/pkg/storefront"
)

// ClientOptions translates the shared runtime settings into storefront
// client options for a source adapter.
func ClientOptions(rt config.Runtime) []storefront.Option {
	var options []storefront.Option
	if rt.HTTPTimeout > 0 {
		options = append(options, storefront.WithHTTPTimeout(rt.HTTPTimeout))
	}
	if rt.RetryCount > 0 {
		options = append(options, storefront.WithRetryCount(rt.RetryCount))
	}
	if rt.RetryDelay > 0 {
		options = append(options, storefront.WithRetryDelay(rt.RetryDelay))
	}
	if rt.RetryJitter > 0 {
		options = append(options, storefront.WithRetryJitter(rt.RetryJitter))
	}
	if rt.UserAgent != "" {
		options = append(options, storefront.WithUserAgent(rt.UserAgent))
	}
	return options
}

type Job struct {
	Logger  log.Logger
	FS      billy.Filesystem
	Client  *http.Client
	Runtime config.Runtime
	Source  sources.Source
}

func (j *Job) logger() log.Logger {
	if j.Logger == nil {
		return log.Discard
	}
	return j.Logger
}

// Run executes the cycle. A catalog that cannot be read is fatal for
// this source; a failed write is logged and the in-memory catalog still
// drives the cover downloads. Download failures are counted, logged,
// and swallowed.
func (j *Job) Run(ctx context.Context) error {
	logger := j.logger()
	file := j.Source.CatalogFile()

	existing, err := catalog.Load(j.FS, file)
	if err != nil {
		return errors.Wrapf(err, "loading %s", file)
	}

	listed, err := paginate.Collect(ctx, logger, j.Source.Listing())
	if err != nil {
		return err
	}
	logger.Infof("listing yielded %d apps", len(listed))

	merged := catalog.Merge(existing, listed, logger)
	logger.Infof("catalog has %d apps (%d new)", len(merged), len(merged)-len(existing))

	if j.Runtime.DryRun {
		logger.Infof("dry run, skipping writes and downloads")
		return nil
	}

	if err := catalog.Save(j.FS, file, merged); err != nil {
		logger.Warnf("saving %s: %v", file, err)
	}

	tasks := j.Source.Covers(ctx, merged)
	if len(tasks) == 0 {
		logger.Infof("no covers to download")
		return nil
	}

	pipeline := download.Pipeline{
		FS:        j.FS,
		Client:    j.Client,
		Logger:    logger,
		Workers:   j.Runtime.Workers,
		Attempts:  j.Runtime.RetryCount,
		BaseDelay: j.Runtime.RetryDelay,
		ErrorLog:  j.Source.Name() + "_cover_errors.log",
	}
	stats, err := pipeline.Run(ctx, tasks)
	if err != nil {
		logger.Warnf("cover downloads: %v", err)
	}
	logger.Infof("covers: %d attempted, %d succeeded, %d failed",
		stats.Attempted, stats.Succeeded, stats.Failed)

	return ctx.Err()
}
