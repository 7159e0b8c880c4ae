// Package download fetches cover artwork with bounded parallelism. One
// task's failure never aborts its siblings; the pipeline only reports
// aggregate counts and a combined error for whoever wants the details.
package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sync"
	"time"

	"github.com/demosdemon/multierrgroup"
	"github.com/go-git/go-billy/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/retry"
)

const (
	DefaultWorkers     = 8
	DefaultAttempts    = 3
	DefaultBaseDelay   = time.Second
	DefaultHTTPTimeout = time.Minute
)

// Task maps one source URL to a destination path on the pipeline's
// filesystem. Encode selects an optional re-encode of the payload.
type Task struct {
	URL    string
	Dest   string
	Encode Format
}

type Stats struct {
	Attempted int
	Succeeded int
	Failed    int
}

type Pipeline struct {
	FS     billy.Filesystem
	Client *http.Client
	Logger log.Logger

	// Workers bounds parallelism; Attempts and BaseDelay feed the
	// per-task retry with doubling backoff. The client timeout applies
	// per attempt, not per task.
	Workers   int
	Attempts  int
	BaseDelay time.Duration

	// ErrorLog, when set, names an append-only file on FS collecting
	// one line per terminal failure.
	ErrorLog string
}

func (p *Pipeline) logger() log.Logger {
	if p.Logger == nil {
		return log.Discard
	}
	return p.Logger
}

func (p *Pipeline) client() *http.Client {
	if p.Client == nil {
		p.Client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return p.Client
}

// Run processes every task and returns the aggregate counts plus the
// combined per-task errors, which the caller may log and otherwise
// ignore. Only a nil filesystem is a programmer error.
func (p *Pipeline) Run(ctx context.Context, tasks []Task) (Stats, error) {
	if p.FS == nil {
		return Stats{}, errors.New("download: nil filesystem")
	}

	workers := p.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	var errlog billy.File
	if p.ErrorLog != "" {
		var err error
		errlog, err = p.FS.OpenFile(p.ErrorLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			p.logger().Warnf("cannot open error log %q: %v", p.ErrorLog, err)
		}
	}

	var (
		mu    sync.Mutex
		stats Stats
	)

	ch := make(chan Task)
	go func() {
		defer close(ch)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				return
			case ch <- t:
			}
		}
	}()

	var g multierrgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			var multi *multierror.Error
			for t := range ch {
				err := p.one(ctx, t)

				mu.Lock()
				stats.Attempted++
				if err == nil {
					stats.Succeeded++
				} else {
					stats.Failed++
					if errlog != nil {
						_, _ = fmt.Fprintf(errlog, "Error: %v\n\n", err)
					}
				}
				mu.Unlock()

				if err != nil {
					p.logger().Errorf("%s: %v", t.Dest, err)
					multi = multierror.Append(multi, err)
				}
			}
			return multi.ErrorOrNil()
		})
	}

	err := g.Wait()
	if errlog != nil {
		_ = errlog.Close()
	}

	p.logger().Infof(
		"downloads finished: %d attempted, %d succeeded, %d failed",
		stats.Attempted, stats.Succeeded, stats.Failed,
	)
	return stats, err
}

func (p *Pipeline) one(ctx context.Context, t Task) error {
	if err := validate(t); err != nil {
		p.logger().Warnf("skipping %q: %v", t.URL, err)
		return err
	}

	attempts := p.Attempts
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	return retry.Go(
		ctx,
		func() error { return p.fetch(ctx, t) },
		retry.WithMaxAttempts(attempts),
		retry.WithBackoff(base, 0),
		retry.WithDoRetry(func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.retryable()
			}
			return true
		}),
		retry.WithOnRetry(func(attempt int, wait time.Duration, err error) {
			p.logger().Debugf("%s attempt %d failed: %v; sleeping %s", t.URL, attempt, err, wait)
		}),
	)
}

type statusError struct {
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.url, e.status)
}

// A concrete 4xx answer will not improve on a refetch; 429 and server
// errors might.
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

func (p *Pipeline) fetch(ctx context.Context, t Task) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return err
	}

	res, err := p.client().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return &statusError{url: t.URL, code: res.StatusCode, status: res.Status}
	}

	if dir := path.Dir(t.Dest); dir != "." {
		if err := p.FS.MkdirAll(dir, 0777); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}

	body := io.Reader(res.Body)
	if t.Encode != Original {
		data, err := io.ReadAll(res.Body)
		if err != nil {
			return errors.Wrapf(err, "reading %s", t.URL)
		}
		data, err = reencode(data, t.Encode)
		if err != nil {
			return errors.Wrapf(err, "re-encoding %s", t.URL)
		}
		body = bytes.NewReader(data)
	}

	fp, err := p.FS.Create(t.Dest)
	if err != nil {
		return errors.Wrapf(err, "creating %s", t.Dest)
	}

	_, err = io.Copy(fp, body)
	if cErr := fp.Close(); err == nil {
		err = cErr
	}
	return errors.Wrapf(err, "writing %s", t.Dest)
}

func validate(t Task) error {
	if t.URL == "" {
		return errors.New("empty url")
	}

	u, err := url.ParseRequestURI(t.URL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	if t.Dest == "" {
		return errors.New("empty destination")
	}

	return nil
}
