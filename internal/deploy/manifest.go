// Package deploy loads the deployment record: which addresses play which
// role, the native asset, and the optional AMM endpoint.
package deploy

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/idhash"
	"meme-ledger/internal/launchpad"
	"meme-ledger/internal/pricing"
)

// Manifest is the on-disk deployment record.
type Manifest struct {
	Network Network   `toml:"network"`
	Roles   Roles     `toml:"roles"`
	AMM     AMM       `toml:"amm"`
	Genesis []Genesis `toml:"genesis"`
}

// Network describes the native quote asset and fee.
type Network struct {
	NativeName   string `toml:"native_name"`
	NativeSymbol string `toml:"native_symbol"`
	// PlatformFee in whole native units, e.g. "0.01".
	PlatformFee string `toml:"platform_fee"`
}

// Roles are the fixed identities of a deployment.
type Roles struct {
	Owner    domain.Address `toml:"owner"`    // ledger owner, installs the gate
	Admin    domain.Address `toml:"admin"`    // spotlight, voting, native credits
	Gate     domain.Address `toml:"gate"`     // the single ledger writer
	Treasury domain.Address `toml:"treasury"` // collects fees and payments
	Custody  domain.Address `toml:"custody"`  // holds staked principal
}

// AMM points at an external exchange. Empty Endpoint disables it.
type AMM struct {
	Endpoint string         `toml:"endpoint"`
	Router   domain.Address `toml:"router"`
	Factory  domain.Address `toml:"factory"`
}

// Genesis credits native units to an address at startup.
type Genesis struct {
	Address domain.Address `toml:"address"`
	Amount  string         `toml:"amount"` // whole native units
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest load failed (%s): %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest TOML. Missing network fields get
// defaults.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	meta, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("manifest parse failed: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown manifest keys %s", domain.ErrInvalidInput, strings.Join(keys, ", "))
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if strings.TrimSpace(m.Network.NativeName) == "" {
		m.Network.NativeName = "Native"
	}
	if strings.TrimSpace(m.Network.NativeSymbol) == "" {
		m.Network.NativeSymbol = "NATIVE"
	}
	if strings.TrimSpace(m.Network.PlatformFee) == "" {
		m.Network.PlatformFee = pricing.FormatUnits(launchpad.DefaultPlatformFee)
	}
}

// Validate checks that every role address parses and is not zero, that
// the roles are distinct, and that amounts parse.
func (m *Manifest) Validate() error {
	roles := []struct {
		name string
		addr domain.Address
	}{
		{"owner", m.Roles.Owner},
		{"admin", m.Roles.Admin},
		{"gate", m.Roles.Gate},
		{"treasury", m.Roles.Treasury},
		{"custody", m.Roles.Custody},
	}

	seen := make(map[domain.Address]string, len(roles))
	for _, r := range roles {
		if !r.addr.Valid() {
			return fmt.Errorf("roles.%s %q: %w", r.name, r.addr, domain.ErrInvalidAddress)
		}
		if other, dup := seen[r.addr]; dup {
			return fmt.Errorf("%w: roles.%s and roles.%s share an address", domain.ErrInvalidInput, other, r.name)
		}
		seen[r.addr] = r.name
	}

	if _, err := m.PlatformFee(); err != nil {
		return fmt.Errorf("network.platform_fee: %w", err)
	}

	if m.AMM.Endpoint != "" {
		if !m.AMM.Router.Valid() {
			return fmt.Errorf("amm.router %q: %w", m.AMM.Router, domain.ErrInvalidAddress)
		}
		if !m.AMM.Factory.Valid() {
			return fmt.Errorf("amm.factory %q: %w", m.AMM.Factory, domain.ErrInvalidAddress)
		}
	}

	for i, g := range m.Genesis {
		if !g.Address.Valid() {
			return fmt.Errorf("genesis[%d].address %q: %w", i, g.Address, domain.ErrInvalidAddress)
		}
		if _, err := pricing.ParseUnits(g.Amount); err != nil {
			return fmt.Errorf("genesis[%d].amount: %w", i, err)
		}
	}
	return nil
}

// PlatformFee returns the fee in native sub-units.
func (m *Manifest) PlatformFee() (*big.Int, error) {
	return pricing.ParseUnits(m.Network.PlatformFee)
}

// GenesisCredits returns each genesis amount in sub-units.
func (m *Manifest) GenesisCredits() (map[domain.Address]*big.Int, error) {
	out := make(map[domain.Address]*big.Int, len(m.Genesis))
	for _, g := range m.Genesis {
		amt, err := pricing.ParseUnits(g.Amount)
		if err != nil {
			return nil, err
		}
		if cur, ok := out[g.Address]; ok {
			amt.Add(amt, cur)
		}
		out[g.Address] = amt
	}
	return out, nil
}

// Encode writes m as TOML.
func (m *Manifest) Encode(w io.Writer) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Dev returns a manifest for local runs. Role addresses are derived from
// the role names so they are stable across restarts.
func Dev() (*Manifest, error) {
	role := func(name string) (domain.Address, error) {
		addr, _, err := idhash.DeriveTokenAddress(devSeed, name, 0)
		return addr, err
	}

	m := &Manifest{}
	var err error
	for _, r := range []struct {
		name string
		dst  *domain.Address
	}{
		{"owner", &m.Roles.Owner},
		{"admin", &m.Roles.Admin},
		{"gate", &m.Roles.Gate},
		{"treasury", &m.Roles.Treasury},
		{"custody", &m.Roles.Custody},
	} {
		if *r.dst, err = role(r.name); err != nil {
			return nil, fmt.Errorf("derive %s: %w", r.name, err)
		}
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// devSeed is the creator used to derive dev role addresses.
var devSeed = domain.MustParseAddress("11111111111111111111111111111112")
