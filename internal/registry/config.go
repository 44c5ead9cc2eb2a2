package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vaultops/callguard/internal/calldata"
	"github.com/vaultops/callguard/internal/model"
)

// MarketConfig is the YAML form of the leveraged-market policy.
type MarketConfig struct {
	Trading               string   `yaml:"trading" validate:"required,ethaddr"`
	Storage               string   `yaml:"storage" validate:"omitempty,ethaddr"`
	Vault                 string   `yaml:"vault" validate:"omitempty,ethaddr"`
	MaxLeverage           string   `yaml:"max_leverage" validate:"required,uint256"`
	MaxCollateralPerTrade string   `yaml:"max_collateral_per_trade" validate:"required,uint256"`
	Pairs                 []uint64 `yaml:"pairs"`
}

// CallSiteConfig whitelists selectors on one target. A selector may be
// written as 0x-prefixed hex or as a canonical signature such as
// "transfer(address,uint256)".
type CallSiteConfig struct {
	Target    string   `yaml:"target" validate:"required,ethaddr"`
	Selectors []string `yaml:"selectors" validate:"required,min=1"`
}

// WebhookConfig is one change-event webhook destination.
type WebhookConfig struct {
	URL     string            `yaml:"url" validate:"required,url"`
	Kinds   []string          `yaml:"kinds"`
	Headers map[string]string `yaml:"headers"`
}

// Config is the on-disk registry policy file.
type Config struct {
	Governance string `yaml:"governance" validate:"omitempty,ethaddr"`

	Senders                        []string `yaml:"senders" validate:"dive,ethaddr"`
	Receivers                      []string `yaml:"receivers" validate:"dive,ethaddr"`
	WithdrawDestinations           []string `yaml:"withdraw_destinations" validate:"dive,ethaddr"`
	ApprovalDestinations           []string `yaml:"approval_destinations" validate:"dive,ethaddr"`
	DelegationApprovalDestinations []string `yaml:"delegation_approval_destinations" validate:"dive,ethaddr"`
	Assets                         []string `yaml:"assets" validate:"dive,ethaddr"`
	LagoonVaults                   []string `yaml:"lagoon_vaults" validate:"dive,ethaddr"`

	AnyAsset  bool             `yaml:"any_asset"`
	CallSites []CallSiteConfig `yaml:"call_sites"`
	Market    *MarketConfig    `yaml:"market"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// DefaultConfig returns the fail-closed empty policy: no governance
// principal, no whitelist entries, everything denied.
func DefaultConfig() *Config {
	return &Config{}
}

var addrPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("ethaddr", func(fl validator.FieldLevel) bool {
		return addrPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("uint256", func(fl validator.FieldLevel) bool {
		n, ok := new(big.Int).SetString(fl.Field().String(), 10)
		return ok && n.Sign() >= 0 && n.BitLen() <= 256
	})
	return v
}

// Validate checks the structural integrity of the config.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("policy config: %w", err)
	}
	return nil
}

// Load reads a registry policy from a YAML file. Empty path falls back
// to ~/.callguard/policy.yaml. Missing file returns the fail-closed
// defaults; invalid YAML returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads the policy and returns the SHA-256 of the raw
// YAML bytes on disk. Defaults hash to the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	path = ResolvePath(path)
	if path == "" {
		h := sha256.Sum256(nil)
		return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("failed to read policy config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse policy config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, hash, nil
}

// ResolvePath returns the effective policy path: the given path, or
// ~/.callguard/policy.yaml when empty. Empty result means no home
// directory could be resolved.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".callguard", "policy.yaml")
}

// Save writes the config back as YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal policy config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Apply mirrors one registry mutation onto the YAML form so the policy
// file can be written back. Key formats match Registry.Insert. Callers
// must enforce the governance gate before applying; a built registry's
// Insert or Remove does that.
func (c *Config) Apply(insert bool, kind Kind, key string) error {
	switch kind {
	case KindAnyAsset:
		enabled := false
		if insert {
			var err error
			if enabled, err = strconv.ParseBool(key); err != nil {
				return fmt.Errorf("policy config: any_asset key: %w", err)
			}
		}
		c.AnyAsset = enabled
		return nil

	case KindMarketPair:
		pairID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("policy config: pair id: %w", err)
		}
		if c.Market == nil {
			return fmt.Errorf("policy config: no market configured")
		}
		c.Market.Pairs = applyUint64(c.Market.Pairs, pairID, insert)
		return nil

	case KindCallSite:
		target, sel, err := parseCallSiteKey(key)
		if err != nil {
			return err
		}
		for i := range c.CallSites {
			if strings.EqualFold(c.CallSites[i].Target, target.String()) {
				c.CallSites[i].Selectors = applySelector(c.CallSites[i].Selectors, sel, insert)
				if len(c.CallSites[i].Selectors) == 0 {
					c.CallSites = append(c.CallSites[:i], c.CallSites[i+1:]...)
				}
				return nil
			}
		}
		if insert {
			c.CallSites = append(c.CallSites, CallSiteConfig{Target: target.String(), Selectors: []string{sel.String()}})
		}
		return nil

	default:
		list, err := c.addressList(kind)
		if err != nil {
			return err
		}
		addr, err := model.ParseAddress(key)
		if err != nil {
			return err
		}
		*list = applyString(*list, addr.String(), insert)
		return nil
	}
}

func (c *Config) addressList(kind Kind) (*[]string, error) {
	switch kind {
	case KindSender:
		return &c.Senders, nil
	case KindReceiver:
		return &c.Receivers, nil
	case KindWithdrawDestination:
		return &c.WithdrawDestinations, nil
	case KindApprovalDestination:
		return &c.ApprovalDestinations, nil
	case KindDelegationDestination:
		return &c.DelegationApprovalDestinations, nil
	case KindAsset:
		return &c.Assets, nil
	case KindLagoonVault:
		return &c.LagoonVaults, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// applySelector removes every reference that resolves to sel, whether
// it is written as hex or as a canonical signature, and appends the
// hex form on insert. References that fail to resolve are kept as-is.
func applySelector(list []string, sel model.Selector, insert bool) []string {
	out := list[:0]
	for _, ref := range list {
		if got, err := ParseSelectorRef(ref); err == nil && got == sel {
			continue
		}
		out = append(out, ref)
	}
	if insert {
		out = append(out, sel.String())
	}
	return out
}

func applyString(list []string, v string, insert bool) []string {
	out := list[:0]
	for _, e := range list {
		if !strings.EqualFold(e, v) {
			out = append(out, e)
		}
	}
	if insert {
		out = append(out, v)
	}
	return out
}

func applyUint64(list []uint64, v uint64, insert bool) []uint64 {
	out := list[:0]
	for _, e := range list {
		if e != v {
			out = append(out, e)
		}
	}
	if insert {
		out = append(out, v)
	}
	return out
}

// ParseSelectorRef resolves a config selector reference: 0x-prefixed
// 4-byte hex, or a canonical function signature to hash.
func ParseSelectorRef(ref string) (model.Selector, error) {
	if strings.Contains(ref, "(") {
		return calldata.SelectorOf(ref), nil
	}
	return model.ParseSelector(ref)
}

// Build constructs a Registry from the config. All entries are
// installed as the governance principal; an unset governance yields a
// registry nothing can mutate and nobody can bypass.
func (c *Config) Build() (*Registry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var governance model.Address
	if c.Governance != "" {
		var err error
		governance, err = model.ParseAddress(c.Governance)
		if err != nil {
			return nil, err
		}
	}

	r := New(governance)
	// Direct snapshot population: config load is not a governance-gated
	// mutation, it is the deployment-time state itself.
	s := r.snap

	addrKinds := []struct {
		kind Kind
		vals []string
	}{
		{KindSender, c.Senders},
		{KindReceiver, c.Receivers},
		{KindWithdrawDestination, c.WithdrawDestinations},
		{KindApprovalDestination, c.ApprovalDestinations},
		{KindDelegationDestination, c.DelegationApprovalDestinations},
		{KindLagoonVault, c.LagoonVaults},
	}
	for _, ak := range addrKinds {
		set, err := s.addressSet(ak.kind)
		if err != nil {
			return nil, err
		}
		for _, raw := range ak.vals {
			addr, err := model.ParseAddress(raw)
			if err != nil {
				return nil, err
			}
			set[addr] = true
			s.callSiteCount++
		}
	}

	// Assets go through the composite path: whitelisting an asset also
	// registers its transfer/approve call sites.
	for _, raw := range c.Assets {
		token, err := model.ParseAddress(raw)
		if err != nil {
			return nil, err
		}
		s.assets[token] = true
		s.targets[token] = true
		for _, sel := range []model.Selector{TransferSelector, ApproveSelector} {
			s.callSites[CallSiteKey{Target: token, Selector: sel}] = true
			s.callSiteCount++
		}
		s.callSiteCount++
	}

	s.anyAsset = c.AnyAsset

	for _, cs := range c.CallSites {
		target, err := model.ParseAddress(cs.Target)
		if err != nil {
			return nil, err
		}
		for _, ref := range cs.Selectors {
			sel, err := ParseSelectorRef(ref)
			if err != nil {
				return nil, err
			}
			s.callSites[CallSiteKey{Target: target, Selector: sel}] = true
			s.callSiteCount++
		}
		s.targets[target] = true
	}

	if c.Market != nil {
		m, err := c.Market.build()
		if err != nil {
			return nil, err
		}
		s.market = m
		s.callSiteCount++
	}

	return r, nil
}

func (mc *MarketConfig) build() (*Market, error) {
	trading, err := model.ParseAddress(mc.Trading)
	if err != nil {
		return nil, err
	}
	m := &Market{Trading: trading, pairs: map[uint64]bool{}}
	if mc.Storage != "" {
		if m.Storage, err = model.ParseAddress(mc.Storage); err != nil {
			return nil, err
		}
	}
	if mc.Vault != "" {
		if m.Vault, err = model.ParseAddress(mc.Vault); err != nil {
			return nil, err
		}
	}
	var ok bool
	if m.MaxLeverage, ok = new(big.Int).SetString(mc.MaxLeverage, 10); !ok {
		return nil, fmt.Errorf("market: bad max_leverage %q", mc.MaxLeverage)
	}
	if m.MaxCollateralPerTrade, ok = new(big.Int).SetString(mc.MaxCollateralPerTrade, 10); !ok {
		return nil, fmt.Errorf("market: bad max_collateral_per_trade %q", mc.MaxCollateralPerTrade)
	}
	for _, id := range mc.Pairs {
		m.pairs[id] = true
	}
	return m, nil
}

// DefaultConfigYAML returns a commented policy template for init.
func DefaultConfigYAML() string {
	return `# callguard registry policy
# Generated by: callguard init
#
# Every list below is a whitelist: absent means denied. The governance
# principal is the only address that may mutate the registry at
# runtime, and calls it sends bypass all checks (break-glass recovery).

governance: ""

# Operator addresses allowed to originate guarded calls.
senders: []

# Addresses allowed to receive swap proceeds and vault withdrawals.
receivers: []

# transfer() destinations.
withdraw_destinations: []

# approve() spenders.
approval_destinations: []

# approveDelegation() delegatees (credit delegation).
delegation_approval_destinations: []

# Whitelisted tokens. Each asset also gets its transfer/approve call
# sites registered automatically.
assets: []

# Global any-asset bypass. Makes asset membership checks vacuously
# true. Never bypasses receiver, destination, or market checks.
any_asset: false

# Vaults on which the operator may trigger settlements.
lagoon_vaults: []

# Additional (target, selector) call sites. Selectors may be 0x-hex or
# canonical signatures.
call_sites: []
#  - target: "0x..."
#    selectors: ["exactInput((bytes,address,uint256,uint256))"]

# Leveraged-perpetual venue policy.
market: null
#  trading: "0x..."
#  storage: "0x..."
#  vault: "0x..."
#  max_leverage: "50"
#  max_collateral_per_trade: "250000000000"
#  pairs: [0, 1]

# Change-event webhooks for off-chain monitoring.
webhooks: []
#  - url: "https://hooks.example.com/registry"
#    kinds: [call_site, sender]
`
}
