// Package storage persists sessions and exported scripts under an output
// directory.
package storage

import "context"

// Store reads and writes files relative to a base directory.
type Store interface {
	Save(ctx context.Context, path string, data []byte) error
	Load(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, pattern string) ([]string, error)
}
