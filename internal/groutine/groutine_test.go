package groutine

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGo_NamesGoroutine(t *testing.T) {
	type result struct {
		name  string
		label string
	}
	got := make(chan result, 1)

	//nolint:staticcheck // nil parent is part of the contract
	Go(nil, "print-job", func(ctx context.Context) {
		label, _ := pprof.Label(ctx, "goroutine_name")
		got <- result{name: Name(ctx), label: label}
	})

	r := <-got
	assert.Equal(t, "print-job", r.name)
	assert.Equal(t, "print-job", r.label)
}

func TestGo_KeepsParentValues(t *testing.T) {
	type key struct{}
	parent := context.WithValue(context.Background(), key{}, "addr")
	got := make(chan any, 1)

	Go(parent, "watcher", func(ctx context.Context) {
		got <- ctx.Value(key{})
	})

	assert.Equal(t, "addr", <-got)
}

func TestName_Unnamed(t *testing.T) {
	assert.Empty(t, Name(context.Background()))
	//nolint:staticcheck // nil context
	assert.Empty(t, Name(nil))
}
