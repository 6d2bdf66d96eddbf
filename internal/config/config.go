// Package config loads the single config.json that controls listener
// ports, default drop modes, permission gates, and messaging (spec.md §6
// "CLI / configuration"). Grounded on the teacher's internal/config
// package (LoginServer/GameServerEntry field-per-concern structs plus a
// Load(path) (*Config, error) entry point) and the rdtc8822 L1J-Go
// reference's Load/defaults split, adapted from YAML to JSON because
// spec.md §6 mandates config.json verbatim (see SPEC_FULL.md §2).
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fuzzpoint/psoserver/internal/lobby"
	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// EnvOverride is the environment variable that overrides the default
// config.json path, mirroring the teacher's L1JGO_CONFIG-style override
// convention (SPEC_FULL.md §6).
const EnvOverride = "PSOSERVER_CONFIG"

// DefaultPath is where config.json is read from when EnvOverride is unset.
const DefaultPath = "config.json"

// PortConfiguration is one listening port: its name, bind address, the
// client version it serves, and the session.Behavior newly accepted
// clients start in (spec.md §4.9).
type PortConfiguration struct {
	Name     string           `json:"name"`
	Addr     string           `json:"addr"`
	Port     uint16           `json:"port"`
	Version  version.Version  `json:"version"`
	Behavior session.Behavior `json:"behavior"`

	// ProxyDestAddr/ProxyDestPort name the foreign server a PROXY_SERVER
	// listener relays to. spec.md §4.7 describes proxy destinations as
	// something the client selects from a menu at runtime; this config
	// carries only the degenerate "one listener, one fixed destination"
	// case, leaving menu-driven destination selection to a future
	// collaborator wired the same way session.Config.ProxyDest* already
	// reserves wire-level space for it.
	ProxyDestAddr string `json:"proxy_dest_addr"`
	ProxyDestPort uint16 `json:"proxy_dest_port"`
}

// DropModeDefault pins the default drop mode for one (version, mode)
// pair (spec.md §4.5 step 5), overridable per-game by the creating
// client from the AllowedDropModes bitmask.
type DropModeDefault struct {
	Version version.Version `json:"version"`
	Mode    lobby.Mode      `json:"mode"`
	Drop    lobby.DropMode  `json:"drop"`
}

// Config is the typed form of config.json (spec.md §6).
type Config struct {
	Listeners []PortConfiguration `json:"listeners"`

	// ExternalAddress/LocalAddress feed session.ListenerAddresses for the
	// reconnect address-selection heuristic (spec.md §4.3 step 1).
	ExternalAddress string `json:"external_address"`
	LocalAddress    string `json:"local_address"`

	LicensesDir    string `json:"licenses_dir"`
	QuestsDir      string `json:"quests_dir"`
	PatchDir       string `json:"patch_dir"`
	TournamentDir  string `json:"tournament_dir"`

	AllowUnregisteredUsers bool `json:"allow_unregistered_users"`
	// CatchHandlerExceptions mirrors dispatch.Registry.CatchHandlerExceptions
	// (spec.md §7).
	CatchHandlerExceptions bool `json:"catch_handler_exceptions"`

	WelcomeMessage string `json:"welcome_message"`
	BanMessage     string `json:"ban_message"`
	PatchMessage   string `json:"patch_message"`

	DefaultDropModes []DropModeDefault `json:"default_drop_modes"`

	// BannedIPRanges is a list of CIDR strings; connections from a
	// matching range are refused before the handshake (spec.md §6).
	BannedIPRanges []string `json:"banned_ip_ranges"`

	// IdleTimeoutSeconds/PingIntervalSeconds/GameIdleTimeoutSeconds map to
	// spec.md §5's three timeout knobs.
	IdleTimeoutSeconds      int `json:"idle_timeout_seconds"`
	PingIntervalSeconds     int `json:"ping_interval_seconds"`
	GameIdleTimeoutSeconds  int `json:"game_idle_timeout_seconds"`

	Ep3Enabled bool `json:"ep3_enabled"`
}

// Path resolves the config file path: EnvOverride if set, else DefaultPath.
func Path() string {
	if p := os.Getenv(EnvOverride); p != "" {
		return p
	}
	return DefaultPath
}

// defaults fills in zero-value fields with sane server defaults — called
// before unmarshaling so fields absent from config.json keep a usable
// value rather than zeroing out (spec.md §5's documented timeout
// defaults: 60s idle, 30s ping).
func defaults() Config {
	return Config{
		LicensesDir:            "system/licenses",
		QuestsDir:              "system/quests",
		PatchDir:               "system/patch",
		TournamentDir:          "system/tournaments",
		IdleTimeoutSeconds:     60,
		PingIntervalSeconds:    30,
		GameIdleTimeoutSeconds: 300,
	}
}

// Load reads and parses the config.json at path. Fields missing from the
// file keep their defaults() value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects a config that would leave the server in a broken
// state. A reload that fails Validate must abort without mutating the
// running Config (spec.md §6: "invalid values cause the reload to abort
// without changing state").
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Listeners))
	for _, l := range c.Listeners {
		if l.Port == 0 {
			return fmt.Errorf("listener %q: port must be non-zero", l.Name)
		}
		key := fmt.Sprintf("%s:%d", l.Addr, l.Port)
		if seen[key] {
			return fmt.Errorf("listener %q: duplicate bind address %s", l.Name, key)
		}
		seen[key] = true
		if l.Version < 0 || l.Version >= version.NumVersions {
			return fmt.Errorf("listener %q: unknown version %d", l.Name, l.Version)
		}
	}
	return nil
}

// DropModeFor looks up the configured default drop mode for (v, m),
// falling back to DropServerShared (spec.md §4.5's worked examples all
// use SERVER_SHARED) when nothing is configured.
func (c *Config) DropModeFor(v version.Version, m lobby.Mode) lobby.DropMode {
	for _, d := range c.DefaultDropModes {
		if d.Version == v && d.Mode == m {
			return d.Drop
		}
	}
	return lobby.DropServerShared
}
