package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const samplePolicy = `
governance: "0x00000000000000000000000000000000000000a1"
senders:
  - "0x0000000000000000000000000000000000000b0b"
receivers:
  - "0x00000000000000000000000000000000000000e5"
assets:
  - "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"
call_sites:
  - target: "0x00000000000000000000000000000000000000e1"
    selectors:
      - "exactInput((bytes,address,uint256,uint256))"
      - "0xa9059cbb"
market:
  trading: "0x00000000000000000000000000000000000000d1"
  max_leverage: "50"
  max_collateral_per_trade: "250000000000"
  pairs: [0, 5]
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndBuild(t *testing.T) {
	cfg, hash, err := LoadWithHash(writePolicy(t, samplePolicy))
	if err != nil {
		t.Fatalf("LoadWithHash: %v", err)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("hash = %q", hash)
	}

	r, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := r.Snapshot()

	if s.GovernancePrincipal() != governance {
		t.Errorf("governance = %s", s.GovernancePrincipal())
	}
	if !s.IsSender(operator) {
		t.Error("sender not loaded")
	}
	if !s.IsAsset(usdc) {
		t.Error("asset not loaded")
	}
	// Assets load through the composite path.
	if !s.CallSiteAllowed(usdc, TransferSelector) || !s.CallSiteAllowed(usdc, ApproveSelector) {
		t.Error("asset call sites not registered on load")
	}

	// Signature and hex selector references both resolve.
	if !s.CallSiteAllowed(router, TransferSelector) {
		t.Error("hex selector reference not loaded")
	}
	if !s.KnownTarget(router) {
		t.Error("call-site target missing from index")
	}

	m := s.Market()
	if m == nil {
		t.Fatal("market not loaded")
	}
	if !m.PairAllowed(5) || m.PairAllowed(7) {
		t.Error("pair whitelist wrong")
	}
	if m.MaxLeverage.Int64() != 50 {
		t.Errorf("max leverage = %s", m.MaxLeverage)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Governance != "" || len(cfg.Senders) != 0 {
		t.Error("defaults are not fail-closed empty")
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	path := writePolicy(t, "senders:\n  - \"0x1234\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for short address")
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writePolicy(t, "senders: [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadRejectsBadMarketCeiling(t *testing.T) {
	bad := strings.Replace(samplePolicy, `max_leverage: "50"`, `max_leverage: "not-a-number"`, 1)
	if _, err := Load(writePolicy(t, bad)); err == nil {
		t.Fatal("expected validation error for non-numeric ceiling")
	}
}

func TestDefaultConfigYAMLParsesAndBuilds(t *testing.T) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(DefaultConfigYAML()), cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	r, err := cfg.Build()
	if err != nil {
		t.Fatalf("template does not build: %v", err)
	}
	// The template must be fail-closed out of the box.
	s := r.Snapshot()
	if s.AnyAsset() || s.IsSender(operator) {
		t.Error("template policy is not empty")
	}
}

func TestApplyMirrorsMutations(t *testing.T) {
	cfg, err := Load(writePolicy(t, samplePolicy))
	if err != nil {
		t.Fatal(err)
	}

	if err := cfg.Apply(true, KindSender, intruder.String()); err != nil {
		t.Fatalf("Apply insert: %v", err)
	}
	if err := cfg.Apply(false, KindAsset, usdc.String()); err != nil {
		t.Fatalf("Apply remove: %v", err)
	}
	if err := cfg.Apply(true, KindCallSite, router.String()+":0x095ea7b3"); err != nil {
		t.Fatalf("Apply call site insert: %v", err)
	}
	if err := cfg.Apply(true, KindMarketPair, "9"); err != nil {
		t.Fatalf("Apply pair insert: %v", err)
	}

	r, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build after Apply: %v", err)
	}
	s := r.Snapshot()
	if !s.IsSender(intruder) {
		t.Error("inserted sender missing after rebuild")
	}
	if s.IsAsset(usdc) {
		t.Error("removed asset still present after rebuild")
	}
	if !s.CallSiteAllowed(router, ApproveSelector) {
		t.Error("inserted call site missing after rebuild")
	}
	if m := s.Market(); m == nil || !m.PairAllowed(9) {
		t.Error("inserted pair missing after rebuild")
	}
}

func TestApplyRemovesCallSiteAcrossSelectorForms(t *testing.T) {
	// A selector stored in signature form must be removable by its hex
	// key, and the other way round; otherwise a revocation written back
	// with Save resurfaces on the next load.
	cfg, err := Load(writePolicy(t, samplePolicy))
	if err != nil {
		t.Fatal(err)
	}

	// samplePolicy holds "transfer" on the router as the hex ref and
	// exactInput as a signature ref.
	if err := cfg.Apply(false, KindCallSite, router.String()+":transfer(address,uint256)"); err != nil {
		t.Fatalf("Apply remove by signature: %v", err)
	}
	exactInput := "exactInput((bytes,address,uint256,uint256))"
	if err := cfg.Apply(false, KindCallSite, router.String()+":"+hexRef(t, exactInput)); err != nil {
		t.Fatalf("Apply remove by hex: %v", err)
	}

	if len(cfg.CallSites) != 0 {
		t.Fatalf("call sites not removed from config: %+v", cfg.CallSites)
	}

	out := filepath.Join(t.TempDir(), "policy.yaml")
	if err := cfg.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	r, err := again.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := r.Snapshot()
	if s.CallSiteAllowed(router, TransferSelector) {
		t.Error("revoked call site came back after save and reload")
	}
	if s.KnownTarget(router) {
		t.Error("emptied call-site target still indexed after reload")
	}
}

// hexRef resolves a signature to its hex form for key building.
func hexRef(t *testing.T, sig string) string {
	t.Helper()
	sel, err := ParseSelectorRef(sig)
	if err != nil {
		t.Fatalf("ParseSelectorRef(%q): %v", sig, err)
	}
	return sel.String()
}

func TestApplyInsertStoresHexForm(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Apply(true, KindCallSite, router.String()+":transfer(address,uint256)"); err != nil {
		t.Fatalf("Apply insert: %v", err)
	}
	if len(cfg.CallSites) != 1 || len(cfg.CallSites[0].Selectors) != 1 {
		t.Fatalf("call sites = %+v", cfg.CallSites)
	}
	if got := cfg.CallSites[0].Selectors[0]; got != TransferSelector.String() {
		t.Errorf("stored selector = %q, want canonical hex %q", got, TransferSelector)
	}
}

func TestApplyRejectsUnknownKind(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Apply(true, Kind("nonsense"), "0x00"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(writePolicy(t, samplePolicy))
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "saved", "policy.yaml")
	if err := cfg.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Governance != cfg.Governance || len(again.Assets) != len(cfg.Assets) {
		t.Error("saved config does not round-trip")
	}
}
