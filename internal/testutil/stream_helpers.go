package testutil

import (
	"context"

	"github.com/Belphemur/StreamScraper/internal/models"
)

// CollectStream consumes a StreamResult stream and returns its values, stopping at the first error.
// This is a test helper and should not be used in production code.
func CollectStream[T any](ctx context.Context, stream <-chan models.StreamResult[T]) ([]T, error) {
	var values []T
	for {
		select {
		case result, ok := <-stream:
			if !ok {
				return values, nil
			}
			if result.Err != nil {
				return nil, result.Err
			}
			values = append(values, result.Value)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// CollectChannel drains ch until it is closed and returns every value received, in order.
// This is a test helper and should not be used in production code.
func CollectChannel[T any](ctx context.Context, ch <-chan T) ([]T, error) {
	var values []T
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return values, nil
			}
			values = append(values, v)
		case <-ctx.Done():
			return values, ctx.Err()
		}
	}
}
