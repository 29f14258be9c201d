package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/bytescope/internal/core"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln
}

func recv(t *testing.T, out <-chan []byte) []byte {
	t.Helper()
	select {
	case c := <-out:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no chunk received")
		return nil
	}
}

func TestTCPClientReadsAndSends(t *testing.T) {
	ln := listen(t)
	client := NewTCPClient(TCPConfig{Address: ln.Addr().String()})

	assert.ErrorIs(t, client.Send(context.Background(), []byte{0x01}), core.ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan []byte, 16)
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, out) }()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0xAA, 0x55, 0x0D, 0x0A})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x55, 0x0D, 0x0A}, recv(t, out))

	require.Eventually(t, client.Connected, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, client.Send(ctx, []byte{0xFE, 0xED, 0xFA, 0xCE}))

	got := make([]byte, 4)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0xED, 0xFA, 0xCE}, got)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, client.Connected())
}

func TestTCPClientWithoutReconnectReturnsError(t *testing.T) {
	ln := listen(t)
	addr := ln.Addr().String()
	ln.Close()

	client := NewTCPClient(TCPConfig{Address: addr, DialTimeout: time.Second})
	err := client.Run(context.Background(), make(chan []byte, 1))
	assert.Error(t, err)
}

func TestTCPClientReconnects(t *testing.T) {
	ln := listen(t)
	client := NewTCPClient(TCPConfig{
		Address:          ln.Addr().String(),
		Reconnect:        true,
		ReconnectBackoff: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan []byte, 16)
	go client.Run(ctx, out)

	first, err := ln.Accept()
	require.NoError(t, err)
	_, err = first.Write([]byte("one"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), recv(t, out))
	first.Close()

	second, err := ln.Accept()
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write([]byte("two"))
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), recv(t, out))
}
