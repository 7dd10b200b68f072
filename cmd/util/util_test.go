package util

import (
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeHostsFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "hosts.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadHosts(t *testing.T) {
	path := writeHostsFile(t, `
[[hosts]]
address = "10.0.0.2"
port = 8080
sid = "node-2"

[[hosts]]
address = "10.0.0.3"
port = 8081
`)

	hosts, err := LoadHosts(path)
	require.NoError(t, err)
	assert.Equal(t, []host.Host{
		host.New("10.0.0.2", 8080, "node-2"),
		host.New("10.0.0.3", 8081, ""),
	}, hosts)
}

func TestLoadHostsInvalid(t *testing.T) {
	_, err := LoadHosts(writeHostsFile(t, "[[hosts]]\naddress = \"10.0.0.2\"\n"))
	assert.ErrorContains(t, err, "invalid host #1")

	_, err = LoadHosts(writeHostsFile(t, "not toml ==="))
	assert.Error(t, err)

	_, err = LoadHosts(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestWrapString(t *testing.T) {
	wrapped := WrapString(strings.Repeat("word ", 40))
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, strings.Repeat("word ", 40), strings.ReplaceAll(wrapped, "\n", " ")+" ")
}
