package secrets

import (
	"context"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type Resolver interface {
	Resolve(ctx context.Context, path string) (string, error)
}

// Env resolves secret paths as environment variable names.
func Env() Resolver {
	return envResolver{}
}

type envResolver struct{}

func (envResolver) Resolve(_ context.Context, path string) (string, error) {
	v, ok := os.LookupEnv(path)
	if !ok {
		return "", errors.Errorf("no environment variable %q", path)
	}
	return v, nil
}

// Chain tries each resolver in order and returns the first hit.
func Chain(resolvers ...Resolver) Resolver {
	return chain(resolvers)
}

type chain []Resolver

func (c chain) Resolve(ctx context.Context, path string) (string, error) {
	var multi *multierror.Error
	for _, r := range c {
		v, err := r.Resolve(ctx, path)
		if err == nil {
			return v, nil
		}
		multi = multierror.Append(multi, err)
	}

	if multi == nil {
		return "", errors.Errorf("no resolver for path: %s", path)
	}
	return "", multi.ErrorOrNil()
}
