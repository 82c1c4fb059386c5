// Package publish sends every Analysis to downstream consumers such as
// dashboards.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rustyeddy/digitpro/engine"
)

// Publisher is an engine.Publisher that holds a connection.
type Publisher interface {
	engine.Publisher
	Close() error
}

// Multi publishes to every publisher in turn and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, a engine.Analysis) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(a engine.Analysis) ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return b, nil
}
