package registry

import (
	"errors"
	"math/big"
	"testing"

	"github.com/vaultops/callguard/internal/model"
)

var (
	governance = model.MustAddress("0x00000000000000000000000000000000000000a1")
	intruder   = model.MustAddress("0x00000000000000000000000000000000000000ff")
	operator   = model.MustAddress("0x0000000000000000000000000000000000000b0b")
	usdc       = model.MustAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174")
	router     = model.MustAddress("0x00000000000000000000000000000000000000e1")
)

func TestMutationRequiresGovernance(t *testing.T) {
	r := New(governance)

	if err := r.InsertAddress(intruder, KindSender, operator, ""); !errors.Is(err, ErrNotGovernance) {
		t.Fatalf("want ErrNotGovernance, got %v", err)
	}
	if r.Snapshot().IsSender(operator) {
		t.Fatal("denied mutation still changed the whitelist")
	}

	if err := r.InsertAddress(governance, KindSender, operator, "operator key"); err != nil {
		t.Fatalf("governance insert: %v", err)
	}
	if !r.Snapshot().IsSender(operator) {
		t.Fatal("governance insert not visible")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := New(governance)
	before := r.Snapshot()

	if err := r.InsertAddress(governance, KindAsset, usdc, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// An in-flight decision keeps the whitelist state it started with.
	if before.IsAsset(usdc) {
		t.Error("old snapshot observed a later mutation")
	}
	if !r.Snapshot().IsAsset(usdc) {
		t.Error("new snapshot missing the mutation")
	}
}

func TestWhitelistAssetRegistersCallSites(t *testing.T) {
	r := New(governance)
	if err := r.WhitelistAsset(governance, usdc, "base asset"); err != nil {
		t.Fatalf("WhitelistAsset: %v", err)
	}

	s := r.Snapshot()
	if !s.IsAsset(usdc) {
		t.Error("asset not whitelisted")
	}
	if !s.CallSiteAllowed(usdc, TransferSelector) {
		t.Error("transfer call site not registered")
	}
	if !s.CallSiteAllowed(usdc, ApproveSelector) {
		t.Error("approve call site not registered")
	}
	if !s.KnownTarget(usdc) {
		t.Error("token missing from target index")
	}
}

func TestCallSiteRemovalKeepsTargetWhileSelectorsRemain(t *testing.T) {
	r := New(governance)
	selA := model.Selector{0x01, 0x02, 0x03, 0x04}
	selB := model.Selector{0x0a, 0x0b, 0x0c, 0x0d}

	if err := r.InsertCallSite(governance, router, selA, ""); err != nil {
		t.Fatal(err)
	}
	if err := r.InsertCallSite(governance, router, selB, ""); err != nil {
		t.Fatal(err)
	}

	if err := r.RemoveCallSite(governance, router, selA, ""); err != nil {
		t.Fatal(err)
	}
	s := r.Snapshot()
	if s.CallSiteAllowed(router, selA) {
		t.Error("removed call site still allowed")
	}
	if !s.KnownTarget(router) {
		t.Error("target dropped from index while a selector remains")
	}

	if err := r.RemoveCallSite(governance, router, selB, ""); err != nil {
		t.Fatal(err)
	}
	if r.Snapshot().KnownTarget(router) {
		t.Error("target still in index after last selector removed")
	}
}

func TestCallSiteCountMonotonic(t *testing.T) {
	r := New(governance)
	if err := r.InsertAddress(governance, KindSender, operator, ""); err != nil {
		t.Fatal(err)
	}
	after := r.Snapshot().CallSiteCount()
	if after == 0 {
		t.Fatal("counter not incremented on insert")
	}

	if err := r.RemoveAddress(governance, KindSender, operator, ""); err != nil {
		t.Fatal(err)
	}
	if got := r.Snapshot().CallSiteCount(); got != after {
		t.Errorf("counter changed on removal: %d -> %d", after, got)
	}
}

func TestAnyAssetScopedToAssetChecks(t *testing.T) {
	r := New(governance)
	if err := r.SetAnyAsset(governance, true, "temporary"); err != nil {
		t.Fatal(err)
	}

	s := r.Snapshot()
	if !s.IsAsset(usdc) {
		t.Error("any-asset flag did not make asset check vacuous")
	}
	if s.IsReceiver(usdc) || s.IsWithdrawDestination(usdc) || s.IsApprovalDestination(usdc) {
		t.Error("any-asset flag leaked into a non-asset predicate")
	}
}

func TestMarketPairs(t *testing.T) {
	r := New(governance)
	m := Market{
		Trading:               router,
		MaxLeverage:           big.NewInt(50),
		MaxCollateralPerTrade: big.NewInt(1_000_000),
	}
	if err := r.SetMarket(governance, m, "venue"); err != nil {
		t.Fatal(err)
	}
	if err := r.AllowPair(governance, 3, "ETH/USD"); err != nil {
		t.Fatal(err)
	}

	s := r.Snapshot()
	if !s.Market().PairAllowed(3) {
		t.Error("pair 3 not allowed")
	}
	if s.Market().PairAllowed(4) {
		t.Error("pair 4 allowed without insertion")
	}

	if err := r.RevokePair(governance, 3, ""); err != nil {
		t.Fatal(err)
	}
	if r.Snapshot().Market().PairAllowed(3) {
		t.Error("pair still allowed after revoke")
	}
}

func TestGenericInsertRemove(t *testing.T) {
	r := New(governance)

	if err := r.Insert(governance, KindSender, operator.String(), ""); err != nil {
		t.Fatal(err)
	}
	if !r.Snapshot().IsSender(operator) {
		t.Error("generic sender insert failed")
	}

	key := router.String() + ":" + TransferSelector.String()
	if err := r.Insert(governance, KindCallSite, key, ""); err != nil {
		t.Fatal(err)
	}
	if !r.Snapshot().CallSiteAllowed(router, TransferSelector) {
		t.Error("generic call-site insert failed")
	}
	if err := r.Remove(governance, KindCallSite, key, ""); err != nil {
		t.Fatal(err)
	}
	if r.Snapshot().CallSiteAllowed(router, TransferSelector) {
		t.Error("generic call-site remove failed")
	}

	if err := r.Insert(governance, Kind("bogus"), operator.String(), ""); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("want ErrUnknownKind, got %v", err)
	}
}

func TestChangeEventsEmitted(t *testing.T) {
	r := New(governance)
	var events []Event
	r.SetNotifier(func(e Event) { events = append(events, e) })

	if err := r.InsertAddress(governance, KindReceiver, operator, "vault safe"); err != nil {
		t.Fatal(err)
	}
	if err := r.InsertAddress(intruder, KindReceiver, operator, ""); err == nil {
		t.Fatal("expected governance error")
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (denied mutation must not emit)", len(events))
	}
	e := events[0]
	if e.Kind != KindReceiver || e.Key != operator.String() || e.Note != "vault safe" {
		t.Errorf("event = %+v", e)
	}
	if e.ID == "" || e.At.IsZero() {
		t.Error("event missing id or timestamp")
	}
}
