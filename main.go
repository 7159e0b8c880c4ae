package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/demosdemon/multierrgroup"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/basti564/LauncherIcons/internal/config"
	"github.com/basti564/LauncherIcons/internal/job"
	"github.com/basti564/LauncherIcons/internal/snapshot"
	"github.com/basti564/LauncherIcons/internal/sources"
	"github.com/basti564/LauncherIcons/pkg/download"
	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/secrets"
	"github.com/basti564/LauncherIcons/pkg/secrets/awsparamstore"
)

func parseFlags(args []string) config.Runtime {
	var rt config.Runtime

	fs := flag.NewFlagSet("launchericons", flag.ExitOnError)
	fs.StringVar(&rt.SourcesFile, "sources", "", "YAML source list; empty enables every store")
	fs.StringVar(&rt.OutputDirectory, "out", ".", "directory receiving catalogs and cover art")
	fs.IntVar(&rt.Workers, "workers", download.DefaultWorkers, "parallel cover downloads per store")
	fs.DurationVar(&rt.HTTPTimeout, "timeout", time.Minute, "per-request HTTP timeout")
	fs.IntVar(&rt.RetryCount, "retries", 0, "retry attempts per request (0 for the default)")
	fs.DurationVar(&rt.RetryDelay, "retry-delay", 0, "base delay between retries")
	fs.DurationVar(&rt.RetryJitter, "retry-jitter", 0, "random extra delay between retries")
	fs.StringVar(&rt.UserAgent, "user-agent", "", "override the User-Agent header")
	fs.BoolVar(&rt.DryRun, "dry-run", false, "crawl listings but write nothing")
	fs.BoolVar(&rt.Snapshot, "snapshot", false, "git-commit the output directory after a run")
	fs.BoolVar(&rt.Verbose, "v", false, "debug logging")

	_ = fs.Parse(args)
	return rt
}

func resolver(logger log.Logger) secrets.Resolver {
	resolvers := []secrets.Resolver{secrets.Env()}

	sess, err := session.NewSession()
	if err == nil {
		if creds, err := sess.Config.Credentials.Get(); err == nil && creds.HasKeys() {
			resolvers = append(resolvers, awsparamstore.New(sess))
		}
	}
	if len(resolvers) == 1 {
		logger.Debugf("no AWS credentials, secrets resolve from the environment only")
	}

	return secrets.Chain(resolvers...)
}

func run(ctx context.Context, rt config.Runtime) error {
	level := log.LevelInfo
	if rt.Verbose {
		level = log.LevelDebug
	}
	logger := log.NewLogger(level, os.Stderr, "[main        ] ")

	enabled, err := rt.LoadSources(ctx, resolver(logger))
	if err != nil {
		return err
	}

	fs := osfs.New(rt.OutputDirectory)
	client := &http.Client{Timeout: rt.HTTPTimeout}

	var g multierrgroup.Group
	for _, src := range enabled {
		src := src
		srcLogger := log.NewLogger(level, os.Stderr, fmt.Sprintf("[%-12s] ", src.Name))

		adapter, err := sources.New(src.Name, sources.Config{
			Logger:        srcLogger,
			Options:       src.Options,
			ClientOptions: job.ClientOptions(rt),
			DetailWorkers: rt.Workers,
		})
		if err != nil {
			return err
		}

		j := &job.Job{
			Logger:  srcLogger,
			FS:      fs,
			Client:  client,
			Runtime: rt,
			Source:  adapter,
		}
		g.Go(func() error { return j.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if rt.Snapshot && !rt.DryRun {
		if err := snapshot.Commit(rt.OutputDirectory, logger); err != nil {
			logger.Warnf("snapshot: %v", err)
		}
	}
	return nil
}

func main() {
	rt := parseFlags(os.Args[1:])

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, rt); err != nil {
		stdlog.Fatal(err)
	}
}
