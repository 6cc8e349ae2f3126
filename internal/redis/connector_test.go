package redis

import (
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

func testOptions(addr string) ConnectOptions {
	return ConnectOptions{
		Addr:           addr,
		DialTimeout:    50 * time.Millisecond,
		ReadTimeout:    50 * time.Millisecond,
		WriteTimeout:   50 * time.Millisecond,
		PoolSize:       2,
		ConnectTimeout: 300 * time.Millisecond,
		RetryInterval:  10 * time.Millisecond,
		MaxWait:        40 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestNewConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(testOptions(mr.Addr()), logger.NewNop())
	require.NoError(t, err)
	defer client.Close()
}

func TestNewGivesUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	start := time.Now()
	_, err = New(testOptions(addr), logger.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConnectOptions)
	}{
		{"empty addr", func(o *ConnectOptions) { o.Addr = "" }},
		{"connect timeout", func(o *ConnectOptions) { o.ConnectTimeout = 0 }},
		{"retry interval", func(o *ConnectOptions) { o.RetryInterval = 0 }},
		{"max wait", func(o *ConnectOptions) { o.MaxWait = -1 }},
		{"ping timeout", func(o *ConnectOptions) { o.PingTimeout = 0 }},
		{"warn threshold", func(o *ConnectOptions) { o.WarnThreshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions("127.0.0.1:6379")
			tt.mutate(&opts)
			_, err := New(opts, logger.NewNop())
			assert.Error(t, err)
		})
	}
}
