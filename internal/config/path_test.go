package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("FACTORMATCH_TEST_DIR", "/var/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain path", in: "/tmp/factors.db", want: "/tmp/factors.db"},
		{name: "tilde prefix", in: "~/factors.db", want: filepath.Join(home, "factors.db")},
		{name: "bare tilde", in: "~", want: home},
		{name: "env var", in: "$FACTORMATCH_TEST_DIR/factors.db", want: "/var/data/factors.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	path := DefaultDatabasePath()
	assert.False(t, strings.Contains(path, "$"))
	assert.True(t, strings.HasSuffix(path, filepath.Join("factormatch", "factormatch.db")))
}
