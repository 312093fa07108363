package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolOptions_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		opts PoolOptions
		want PoolOptions
	}{
		{
			name: "zero value takes every default",
			opts: PoolOptions{},
			want: DefaultPoolOptions(),
		},
		{
			name: "set fields are kept",
			opts: PoolOptions{MaxConns: 25, MaxConnIdleTime: time.Minute},
			want: PoolOptions{
				MaxConns:        25,
				MinConns:        DefaultPoolOptions().MinConns,
				MaxConnLifetime: DefaultPoolOptions().MaxConnLifetime,
				MaxConnIdleTime: time.Minute,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.withDefaults())
		})
	}
}

func TestNewPostgresPool_InvalidURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "not a url ::", PoolOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing postgres config")
}
