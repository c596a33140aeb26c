package storage

import (
	"context"
	"testing"
)

type stubRepo struct{}

func (stubRepo) Put(context.Context, string, []byte) error   { return nil }
func (stubRepo) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

func TestOpenUnknownKind(t *testing.T) {
	if _, _, err := Open(context.Background(), Config{Kind: "tape"}); err == nil {
		t.Fatal("unknown kind must be rejected")
	}
}

func TestRegisterAndOpen(t *testing.T) {
	Register("stub", func(ctx context.Context, cfg Config) (Repository, func(), error) {
		return stubRepo{}, func() {}, nil
	})
	repo, closeFn, err := Open(context.Background(), Config{Kind: "stub"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if repo == nil {
		t.Fatal("expected a repository")
	}
}
