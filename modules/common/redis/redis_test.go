package redis

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"memory-transition-server/modules/common/config"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	rdb, err := Connect(context.Background(), &config.Config{RedisHost: host, RedisPort: port})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestConnectPingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	mr.Close()

	_, err = Connect(context.Background(), &config.Config{RedisHost: host, RedisPort: port})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis ping")
}
