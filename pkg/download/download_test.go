package download

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"
)

func testPipeline(fs billy.Filesystem) *Pipeline {
	return &Pipeline{
		FS:        fs,
		Workers:   4,
		Attempts:  2,
		BaseDelay: time.Millisecond,
	}
}

func readFile(t *testing.T, fs billy.Filesystem, name string) []byte {
	t.Helper()
	fp, err := fs.Open(name)
	require.NoError(t, err)
	defer func() { _ = fp.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(fp)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRunCompletesDespiteFailingTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/3") {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprintf(w, "cover %s", r.URL.Path)
	}))
	defer srv.Close()

	fs := memfs.New()
	p := testPipeline(fs)
	p.ErrorLog = "cover_errors.log"

	var tasks []Task
	for i := 1; i <= 5; i++ {
		tasks = append(tasks, Task{
			URL:  fmt.Sprintf("%s/covers/%d", srv.URL, i),
			Dest: fmt.Sprintf("square/app%d.png", i),
		})
	}

	stats, err := p.Run(context.Background(), tasks)
	require.Error(t, err)
	require.Equal(t, Stats{Attempted: 5, Succeeded: 4, Failed: 1}, stats)

	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("square/app%d.png", i)
		if i == 3 {
			_, err := fs.Stat(name)
			require.Error(t, err)
			continue
		}
		require.Equal(t, fmt.Sprintf("cover /covers/%d", i), string(readFile(t, fs, name)))
	}

	require.Contains(t, string(readFile(t, fs, "cover_errors.log")), "Error:")
}

func TestRunRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	fs := memfs.New()
	p := testPipeline(fs)
	p.Attempts = 3

	stats, err := p.Run(context.Background(), []Task{{URL: srv.URL, Dest: "out.bin"}})
	require.NoError(t, err)
	require.Equal(t, Stats{Attempted: 1, Succeeded: 1, Failed: 0}, stats)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Equal(t, "payload", string(readFile(t, fs, "out.bin")))
}

func TestRunDoesNotRetryMissingCovers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fs := memfs.New()
	p := testPipeline(fs)
	p.Attempts = 3

	stats, err := p.Run(context.Background(), []Task{{URL: srv.URL, Dest: "out.bin"}})
	require.Error(t, err)
	require.Equal(t, Stats{Attempted: 1, Succeeded: 0, Failed: 1}, stats)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inflight, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	fs := memfs.New()
	p := testPipeline(fs)
	p.Workers = 2

	var tasks []Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, Task{URL: srv.URL, Dest: fmt.Sprintf("f%d", i)})
	}

	stats, err := p.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.Equal(t, 10, stats.Succeeded)
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunSkipsMalformedURLs(t *testing.T) {
	fs := memfs.New()
	p := testPipeline(fs)

	stats, err := p.Run(context.Background(), []Task{
		{URL: "", Dest: "a"},
		{URL: "::not-a-url", Dest: "b"},
		{URL: "ftp://example.com/x", Dest: "c"},
	})
	require.Error(t, err)
	require.Equal(t, Stats{Attempted: 3, Succeeded: 0, Failed: 3}, stats)
}

func TestRunReencodesImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var source bytes.Buffer
	require.NoError(t, png.Encode(&source, img))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(source.Bytes())
	}))
	defer srv.Close()

	fs := memfs.New()
	p := testPipeline(fs)

	stats, err := p.Run(context.Background(), []Task{
		{URL: srv.URL, Dest: "thumbs/app.jpg", Encode: JPEG},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Succeeded)

	decoded, err := jpeg.Decode(bytes.NewReader(readFile(t, fs, "thumbs/app.jpg")))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 4), decoded.Bounds())
}

func TestFormatExt(t *testing.T) {
	require.Equal(t, ".webp", WEBP.Ext())
	require.Equal(t, ".png", PNG.Ext())
	require.Equal(t, ".jpg", JPEG.Ext())
	require.Equal(t, "", Original.Ext())
}
