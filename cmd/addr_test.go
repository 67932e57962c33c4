package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"loopback with port", "127.0.0.1:8080", false},
		{"port only", ":8080", false},
		{"localhost", "localhost:8080", false},
		{"ipv6", "[::1]:8080", false},
		{"missing port", "127.0.0.1", true},
		{"non-numeric port", "127.0.0.1:http", true},
		{"port zero", "127.0.0.1:0", true},
		{"port too large", "127.0.0.1:70000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAddr(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseServeAddr(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	t.Run("default", func(t *testing.T) {
		os.Args = []string{"bookchat", "serve"}
		addr, err := parseServeAddr("127.0.0.1:8080")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8080", addr)
	})

	t.Run("positional", func(t *testing.T) {
		os.Args = []string{"bookchat", "serve", ":9090"}
		addr, err := parseServeAddr("127.0.0.1:8080")
		require.NoError(t, err)
		assert.Equal(t, ":9090", addr)
	})

	t.Run("flag", func(t *testing.T) {
		os.Args = []string{"bookchat", "serve", "--addr", ":9091"}
		addr, err := parseServeAddr("127.0.0.1:8080")
		require.NoError(t, err)
		assert.Equal(t, ":9091", addr)
	})

	t.Run("invalid", func(t *testing.T) {
		os.Args = []string{"bookchat", "serve", "no-port"}
		_, err := parseServeAddr("127.0.0.1:8080")
		assert.Error(t, err)
	})
}
