package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"listeners":[{"name":"login","addr":"0.0.0.0","port":12000,"version":0,"behavior":2}]}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 60, cfg.IdleTimeoutSeconds)
	require.Equal(t, 30, cfg.PingIntervalSeconds)
	require.Equal(t, "system/licenses", cfg.LicensesDir)
}

func TestLoadRejectsDuplicateListenerAddress(t *testing.T) {
	path := writeConfig(t, `{"listeners":[
		{"name":"a","addr":"0.0.0.0","port":12000,"version":0,"behavior":2},
		{"name":"b","addr":"0.0.0.0","port":12000,"version":0,"behavior":3}
	]}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "duplicate bind address")
}

func TestLoadRejectsZeroPort(t *testing.T) {
	path := writeConfig(t, `{"listeners":[{"name":"a","addr":"0.0.0.0","port":0,"version":0,"behavior":2}]}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "port must be non-zero")
}

func TestDropModeForFallsBackToServerShared(t *testing.T) {
	cfg := defaults()
	require.Equal(t, lobby.DropServerShared, cfg.DropModeFor(version.BB, lobby.ModeNormal))
}

func TestPathHonorsEnvOverride(t *testing.T) {
	t.Setenv(EnvOverride, "/tmp/custom-config.json")
	require.Equal(t, "/tmp/custom-config.json", Path())
}

func TestPortConfigurationCarriesProxyDestination(t *testing.T) {
	pc := PortConfiguration{
		Name: "proxy", Addr: "0.0.0.0", Port: 13000,
		Version: version.BB, Behavior: session.ProxyServer,
		ProxyDestAddr: "127.0.0.1", ProxyDestPort: 9100,
	}
	require.Equal(t, "127.0.0.1", pc.ProxyDestAddr)
	require.Equal(t, uint16(9100), pc.ProxyDestPort)
}
