// Package registry holds the whitelist state the guard decides
// against. Reads go through immutable snapshots so an in-flight
// admission decision never observes a half-applied mutation; writes
// are governance-gated and build a fresh snapshot under a lock.
package registry

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaultops/callguard/internal/model"
)

// Kind names one whitelist store.
type Kind string

const (
	KindCallSite              Kind = "call_site"
	KindSender                Kind = "sender"
	KindReceiver              Kind = "receiver"
	KindWithdrawDestination   Kind = "withdraw_destination"
	KindApprovalDestination   Kind = "approval_destination"
	KindDelegationDestination Kind = "delegation_approval_destination"
	KindAsset                 Kind = "asset"
	KindLagoonVault           Kind = "lagoon_vault"
	KindAnyAsset              Kind = "any_asset"
	KindMarketPair            Kind = "market_pair"
)

// AddressKinds are the kinds whose key is a single address.
var AddressKinds = []Kind{
	KindSender, KindReceiver, KindWithdrawDestination,
	KindApprovalDestination, KindDelegationDestination,
	KindAsset, KindLagoonVault,
}

// ErrNotGovernance is returned when a mutation caller is not the
// governance principal.
var ErrNotGovernance = errors.New("registry: caller is not the governance principal")

// ErrUnknownKind is returned for a mutation against a kind the
// registry does not have.
var ErrUnknownKind = errors.New("registry: unknown kind")

// CallSiteKey identifies one externally callable operation.
type CallSiteKey struct {
	Target   model.Address
	Selector model.Selector
}

func (k CallSiteKey) String() string {
	return k.Target.String() + ":" + k.Selector.String()
}

// Market is the policy for one leveraged-perpetual venue: the venue's
// contract addresses, the allowed pair ids, and the two ceilings
// applied to every order.
type Market struct {
	Trading               model.Address
	Storage               model.Address
	Vault                 model.Address
	MaxLeverage           *big.Int
	MaxCollateralPerTrade *big.Int
	pairs                 map[uint64]bool
}

// PairAllowed reports whether the pair id is whitelisted on the venue.
func (m *Market) PairAllowed(pairID uint64) bool {
	if m == nil {
		return false
	}
	return m.pairs[pairID]
}

func (m *Market) clone() *Market {
	if m == nil {
		return nil
	}
	c := *m
	c.pairs = cloneSet(m.pairs)
	return &c
}

// Pairs returns the allowed pair ids. For serialization and listing.
func (m *Market) Pairs() []uint64 {
	if m == nil {
		return nil
	}
	out := make([]uint64, 0, len(m.pairs))
	for id, ok := range m.pairs {
		if ok {
			out = append(out, id)
		}
	}
	return out
}

// Event is the change notification emitted by every mutation.
type Event struct {
	ID   string    `json:"id"`
	Kind Kind      `json:"kind"`
	Key  string    `json:"key"`
	Note string    `json:"note"`
	At   time.Time `json:"at"`
}

// Snapshot is an immutable view of the whole whitelist. All lookup
// methods are side-effect-free and safe for concurrent use.
type Snapshot struct {
	governance model.Address

	callSites map[CallSiteKey]bool
	targets   map[model.Address]bool // diagnostic index only, never a check

	senders         map[model.Address]bool
	receivers       map[model.Address]bool
	withdrawDests   map[model.Address]bool
	approvalDests   map[model.Address]bool
	delegationDests map[model.Address]bool
	assets          map[model.Address]bool
	lagoonVaults    map[model.Address]bool

	anyAsset bool
	market   *Market

	callSiteCount uint64
}

// GovernancePrincipal returns the single address allowed to mutate the
// registry and bypass all checks.
func (s *Snapshot) GovernancePrincipal() model.Address { return s.governance }

// IsSender reports whether the address may originate guarded calls.
func (s *Snapshot) IsSender(a model.Address) bool { return s.senders[a] }

// IsReceiver reports whether the address may receive swap or
// withdrawal proceeds. Never affected by the any-asset flag.
func (s *Snapshot) IsReceiver(a model.Address) bool { return s.receivers[a] }

// IsAsset reports whether the token is whitelisted. The any-asset flag
// makes this vacuously true; it affects asset membership only.
func (s *Snapshot) IsAsset(a model.Address) bool { return s.anyAsset || s.assets[a] }

// AnyAsset reports the global any-asset bypass flag.
func (s *Snapshot) AnyAsset() bool { return s.anyAsset }

// IsWithdrawDestination reports whether tokens may be transferred to
// the address.
func (s *Snapshot) IsWithdrawDestination(a model.Address) bool { return s.withdrawDests[a] }

// IsApprovalDestination reports whether the address may be approved as
// a spender.
func (s *Snapshot) IsApprovalDestination(a model.Address) bool { return s.approvalDests[a] }

// IsDelegationDestination reports whether the address may receive a
// credit delegation approval.
func (s *Snapshot) IsDelegationDestination(a model.Address) bool { return s.delegationDests[a] }

// IsLagoonVault reports whether the vault may have settlements
// triggered on it.
func (s *Snapshot) IsLagoonVault(a model.Address) bool { return s.lagoonVaults[a] }

// CallSiteAllowed reports whether (target, selector) is a whitelisted
// call site.
func (s *Snapshot) CallSiteAllowed(target model.Address, sel model.Selector) bool {
	return s.callSites[CallSiteKey{Target: target, Selector: sel}]
}

// KnownTarget reports whether any selector is whitelisted on the
// target. Diagnostic only: it distinguishes "target unknown" from
// "selector not permitted on this target" in deny reasons.
func (s *Snapshot) KnownTarget(target model.Address) bool { return s.targets[target] }

// Market returns the leveraged-market policy, or nil when no venue is
// configured.
func (s *Snapshot) Market() *Market { return s.market }

// CallSiteCount returns the diagnostic insertion counter. Monotonic,
// never decremented, no security role.
func (s *Snapshot) CallSiteCount() uint64 { return s.callSiteCount }

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.callSites = cloneSet(s.callSites)
	c.targets = cloneSet(s.targets)
	c.senders = cloneSet(s.senders)
	c.receivers = cloneSet(s.receivers)
	c.withdrawDests = cloneSet(s.withdrawDests)
	c.approvalDests = cloneSet(s.approvalDests)
	c.delegationDests = cloneSet(s.delegationDests)
	c.assets = cloneSet(s.assets)
	c.lagoonVaults = cloneSet(s.lagoonVaults)
	c.market = s.market.clone()
	return &c
}

func cloneSet[K comparable](m map[K]bool) map[K]bool {
	c := make(map[K]bool, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Registry is the mutable wrapper around the current snapshot.
type Registry struct {
	mu   sync.RWMutex
	snap *Snapshot
	sink func(Event)
}

// New creates an empty registry owned by the governance principal.
func New(governance model.Address) *Registry {
	return &Registry{snap: &Snapshot{
		governance:      governance,
		callSites:       map[CallSiteKey]bool{},
		targets:         map[model.Address]bool{},
		senders:         map[model.Address]bool{},
		receivers:       map[model.Address]bool{},
		withdrawDests:   map[model.Address]bool{},
		approvalDests:   map[model.Address]bool{},
		delegationDests: map[model.Address]bool{},
		assets:          map[model.Address]bool{},
		lagoonVaults:    map[model.Address]bool{},
	}}
}

// SetNotifier installs a change-event sink. Events are emitted after
// the mutated snapshot is visible to readers.
func (r *Registry) SetNotifier(sink func(Event)) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// Snapshot returns the current immutable whitelist view. In-flight
// decisions keep the snapshot they started with.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// mutate runs fn against a copy of the current snapshot and swaps it
// in, serializing against other mutations. Readers see either the old
// or the new snapshot, never a mix.
func (r *Registry) mutate(caller model.Address, kind Kind, key, note string, fn func(*Snapshot) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.snap.governance {
		return fmt.Errorf("%w: %s", ErrNotGovernance, caller)
	}
	next := r.snap.clone()
	if err := fn(next); err != nil {
		return err
	}
	r.snap = next
	if r.sink != nil {
		r.sink(Event{
			ID:   uuid.NewString(),
			Kind: kind,
			Key:  key,
			Note: note,
			At:   time.Now().UTC(),
		})
	}
	return nil
}

// InsertAddress whitelists an address in the given address-keyed kind.
func (r *Registry) InsertAddress(caller model.Address, kind Kind, addr model.Address, note string) error {
	return r.mutate(caller, kind, addr.String(), note, func(s *Snapshot) error {
		set, err := s.addressSet(kind)
		if err != nil {
			return err
		}
		set[addr] = true
		s.callSiteCount++
		return nil
	})
}

// RemoveAddress revokes an address from the given address-keyed kind.
func (r *Registry) RemoveAddress(caller model.Address, kind Kind, addr model.Address, note string) error {
	return r.mutate(caller, kind, addr.String(), note, func(s *Snapshot) error {
		set, err := s.addressSet(kind)
		if err != nil {
			return err
		}
		delete(set, addr)
		return nil
	})
}

// InsertCallSite whitelists (target, selector) and records the target
// in the diagnostic index.
func (r *Registry) InsertCallSite(caller, target model.Address, sel model.Selector, note string) error {
	key := CallSiteKey{Target: target, Selector: sel}
	return r.mutate(caller, KindCallSite, key.String(), note, func(s *Snapshot) error {
		s.callSites[key] = true
		s.targets[target] = true
		s.callSiteCount++
		return nil
	})
}

// RemoveCallSite revokes (target, selector). The target stays in the
// diagnostic index while any of its selectors remain whitelisted.
func (r *Registry) RemoveCallSite(caller, target model.Address, sel model.Selector, note string) error {
	key := CallSiteKey{Target: target, Selector: sel}
	return r.mutate(caller, KindCallSite, key.String(), note, func(s *Snapshot) error {
		delete(s.callSites, key)
		for k := range s.callSites {
			if k.Target == target {
				return nil
			}
		}
		delete(s.targets, target)
		return nil
	})
}

// SetAnyAsset sets the global any-asset bypass flag. The flag makes
// asset-membership checks vacuously true; receiver, destination and
// market checks are unaffected.
func (r *Registry) SetAnyAsset(caller model.Address, enabled bool, note string) error {
	return r.mutate(caller, KindAnyAsset, strconv.FormatBool(enabled), note, func(s *Snapshot) error {
		s.anyAsset = enabled
		if enabled {
			s.callSiteCount++
		}
		return nil
	})
}

// SetMarket installs or replaces the leveraged-market venue policy.
// Pair whitelisting is separate (AllowPair/RevokePair).
func (r *Registry) SetMarket(caller model.Address, m Market, note string) error {
	return r.mutate(caller, KindMarketPair, m.Trading.String(), note, func(s *Snapshot) error {
		installed := m
		installed.pairs = map[uint64]bool{}
		if s.market != nil {
			installed.pairs = cloneSet(s.market.pairs)
		}
		s.market = &installed
		s.callSiteCount++
		return nil
	})
}

// AllowPair whitelists a pair id on the configured venue.
func (r *Registry) AllowPair(caller model.Address, pairID uint64, note string) error {
	return r.mutate(caller, KindMarketPair, strconv.FormatUint(pairID, 10), note, func(s *Snapshot) error {
		if s.market == nil {
			return errors.New("registry: no leveraged market configured")
		}
		s.market.pairs[pairID] = true
		s.callSiteCount++
		return nil
	})
}

// RevokePair removes a pair id from the venue whitelist.
func (r *Registry) RevokePair(caller model.Address, pairID uint64, note string) error {
	return r.mutate(caller, KindMarketPair, strconv.FormatUint(pairID, 10), note, func(s *Snapshot) error {
		if s.market == nil {
			return errors.New("registry: no leveraged market configured")
		}
		delete(s.market.pairs, pairID)
		return nil
	})
}

// WhitelistAsset whitelists a token and registers its transfer and
// approve call sites in one step: every asset that may move must also
// be individually callable for those two operations.
func (r *Registry) WhitelistAsset(caller, token model.Address, note string) error {
	return r.mutate(caller, KindAsset, token.String(), note, func(s *Snapshot) error {
		s.assets[token] = true
		for _, sel := range []model.Selector{TransferSelector, ApproveSelector} {
			s.callSites[CallSiteKey{Target: token, Selector: sel}] = true
			s.callSiteCount++
		}
		s.targets[token] = true
		s.callSiteCount++
		return nil
	})
}

// Insert applies a string-keyed insertion for the admin surface. The
// key format depends on the kind: an address for address kinds,
// "target:selector" for call sites, a decimal pair id for market
// pairs, "true"/"false" for the any-asset flag.
func (r *Registry) Insert(caller model.Address, kind Kind, key, note string) error {
	switch kind {
	case KindCallSite:
		target, sel, err := parseCallSiteKey(key)
		if err != nil {
			return err
		}
		return r.InsertCallSite(caller, target, sel, note)
	case KindAnyAsset:
		enabled, err := strconv.ParseBool(key)
		if err != nil {
			return fmt.Errorf("registry: any_asset key: %w", err)
		}
		return r.SetAnyAsset(caller, enabled, note)
	case KindMarketPair:
		pairID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("registry: pair id: %w", err)
		}
		return r.AllowPair(caller, pairID, note)
	default:
		addr, err := model.ParseAddress(key)
		if err != nil {
			return err
		}
		return r.InsertAddress(caller, kind, addr, note)
	}
}

// Remove applies a string-keyed removal for the admin surface.
func (r *Registry) Remove(caller model.Address, kind Kind, key, note string) error {
	switch kind {
	case KindCallSite:
		target, sel, err := parseCallSiteKey(key)
		if err != nil {
			return err
		}
		return r.RemoveCallSite(caller, target, sel, note)
	case KindAnyAsset:
		return r.SetAnyAsset(caller, false, note)
	case KindMarketPair:
		pairID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("registry: pair id: %w", err)
		}
		return r.RevokePair(caller, pairID, note)
	default:
		addr, err := model.ParseAddress(key)
		if err != nil {
			return err
		}
		return r.RemoveAddress(caller, kind, addr, note)
	}
}

func (s *Snapshot) addressSet(kind Kind) (map[model.Address]bool, error) {
	switch kind {
	case KindSender:
		return s.senders, nil
	case KindReceiver:
		return s.receivers, nil
	case KindWithdrawDestination:
		return s.withdrawDests, nil
	case KindApprovalDestination:
		return s.approvalDests, nil
	case KindDelegationDestination:
		return s.delegationDests, nil
	case KindAsset:
		return s.assets, nil
	case KindLagoonVault:
		return s.lagoonVaults, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func parseCallSiteKey(key string) (model.Address, model.Selector, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return model.ZeroAddress, model.Selector{}, fmt.Errorf("registry: call site key %q: want target:selector", key)
	}
	target, err := model.ParseAddress(parts[0])
	if err != nil {
		return model.ZeroAddress, model.Selector{}, err
	}
	sel, err := ParseSelectorRef(parts[1])
	if err != nil {
		return model.ZeroAddress, model.Selector{}, err
	}
	return target, sel, nil
}
