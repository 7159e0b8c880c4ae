// Command dedupe rewrites catalog files in place, dropping keyless and
// duplicate entries while keeping first-seen order. Useful after hand
// edits to the checked-in catalogs.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/demosdemon/multierrgroup"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/hashicorp/errwrap"

	"github.com/basti564/LauncherIcons/pkg/catalog"
)

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		log.Fatal("usage: dedupe <catalog.json> [...]")
	}

	var g multierrgroup.Group
	for _, f := range files {
		f := f
		g.Go(dedupe(f))
	}

	if err := g.Wait(); err != nil {
		if err, ok := err.(errwrap.Wrapper); ok {
			errs := err.WrappedErrors()
			log.Printf("%d errors occured:", len(errs))
			for _, err := range errs {
				log.Printf("* %v", err)
			}
			os.Exit(1)
		}
		log.Printf("fatal error: %v", err)
		os.Exit(2)
	}
}

type dedupeError struct {
	path  string
	error error
}

func (e dedupeError) Error() string {
	return fmt.Sprintf("error processing `%s`: %v", e.path, e.error)
}

func dedupe(path string) func() error {
	return func() error {
		log.Printf("opening %s", path)

		fs := osfs.New(filepath.Dir(path))
		name := filepath.Base(path)

		apps, err := catalog.Load(fs, name)
		if err != nil {
			return dedupeError{path, err}
		}
		if apps == nil {
			return dedupeError{path, os.ErrNotExist}
		}

		cleaned := catalog.Merge(nil, apps, nil)
		if err := catalog.Save(fs, name, cleaned); err != nil {
			return dedupeError{path, err}
		}

		log.Printf("finished %s (%d of %d entries kept)", path, len(cleaned), len(apps))
		return nil
	}
}
