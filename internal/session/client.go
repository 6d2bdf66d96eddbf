package session

import (
	"sync"

	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// Trade is a pending item-trade negotiation between two clients. Only the
// shape needed by the dispatch layer to validate and commit a trade is
// modeled here; the trade UI sequencing itself is a dispatch concern.
type Trade struct {
	PartnerGuildCard uint32
	Confirmed        bool
	ItemIDs          []uint32
}

// PendingExport is an in-flight character-file export (the client asked
// to save its character to a Guild-Card-portable blob).
type PendingExport struct {
	RequestID uint32
	Data      []byte
}

// FunctionCallResponse is a queued reply to a client-side patch callback
// (the patch-server function-call mechanism used for anti-cheat probes
// and dynamic patch parameters).
type FunctionCallResponse struct {
	CallID uint32
	Result []byte
}

// BBTransient holds Blue-Burst-only state that has no equivalent on other
// versions: the pending item-identify result and the current shop's
// contents, both scoped to the lifetime of the menu interaction that
// produced them.
type BBTransient struct {
	IdentifyResult []byte
	ShopContents   []byte
}

// Client is one authenticated connection's state machine and per-version
// config (spec.md §3). Per the design notes' cyclic-reference guidance
// (§9), Client never holds a pointer back into its Lobby — only the
// lobby id and its slot within it — so Lobby and Client can reference
// each other without a strong cycle.
type Client struct {
	Channel  *channel.Channel
	Version  version.Version
	Behavior Behavior
	Language uint8

	mu sync.Mutex

	login  *Login
	config Config

	// LobbyID is 0 when the client is not currently in any lobby. SlotID
	// is only meaningful while LobbyID != 0 and must always satisfy
	// lobby.clients[SlotID] == this client (spec.md §8 "lobby slot
	// consistency").
	LobbyID int
	SlotID  int
	Floor   uint32
	X, Z    float32

	Trade          *Trade
	PendingExport  *PendingExport
	FunctionCalls  []FunctionCallResponse

	// Silenced is set by the $silence chat command (spec.md §4.4); a
	// silenced client's chat is dropped by the dispatch layer instead of
	// being broadcast.
	Silenced bool

	BB BBTransient

	disconnectHooks []func(*Client)
	closed          bool
}

// NewClient constructs a Client freshly accepted on ch, not yet
// authenticated.
func NewClient(ch *channel.Channel, v version.Version, behavior Behavior) *Client {
	return &Client{
		Channel:  ch,
		Version:  v,
		Behavior: behavior,
		config:   NewDefaultConfig(),
	}
}

// Login returns the authenticated Login, or nil if the client hasn't
// authenticated yet.
func (c *Client) Login() *Login {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login
}

// SetLogin installs the Login produced by a successful credential lookup,
// marking the client as authenticated.
func (c *Client) SetLogin(l *Login) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.login = l
}

// Authenticated reports whether SetLogin has been called.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login != nil
}

// Config returns a copy of the client's current Config.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// SetConfig replaces the client's Config wholesale.
func (c *Client) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
}

// GuildCardNumber is the client's public identifier: the owning account's
// id (glossary: "Guild Card number").
func (c *Client) GuildCardNumber() uint32 {
	l := c.Login()
	if l == nil || l.Account == nil {
		return 0
	}
	return l.Account.AccountID
}

// OnDisconnect registers a hook to run after the client has been fully
// cancelled and is about to be destroyed (spec.md §5 "Cancellation").
func (c *Client) OnDisconnect(fn func(*Client)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectHooks = append(c.disconnectHooks, fn)
}

// Disconnect closes the underlying Channel, cancels outstanding
// client-owned state, and fires every registered disconnect hook exactly
// once. Safe to call more than once.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	hooks := c.disconnectHooks
	c.Trade = nil
	c.PendingExport = nil
	c.FunctionCalls = nil
	c.mu.Unlock()

	_ = c.Channel.Close()
	for _, h := range hooks {
		h(c)
	}
}
