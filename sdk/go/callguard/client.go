package callguard

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vaultops/callguard/internal/guard"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/registry"
)

// Client validates proposed calls before they are signed. It runs
// either in process against a loaded policy file, or remotely against
// an admission service. Thread-safe for concurrent checks.
type Client struct {
	cfg clientConfig

	mu         sync.RWMutex
	reg        *registry.Registry
	policyHash string
}

// New creates a Client with the given options. Without WithServer the
// policy file is loaded once; call Reload to pick up changes.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(&cfg)
	}

	c := &Client{cfg: cfg}
	if cfg.serverURL == "" {
		if err := c.Reload(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Reload re-reads the policy file. No-op for remote clients.
func (c *Client) Reload() error {
	if c.cfg.serverURL != "" {
		return nil
	}
	pcfg, hash, err := registry.LoadWithHash(c.cfg.policyPath)
	if err != nil {
		return fmt.Errorf("callguard: failed to load policy: %w", err)
	}
	reg, err := pcfg.Build()
	if err != nil {
		return fmt.Errorf("callguard: failed to build registry: %w", err)
	}
	c.mu.Lock()
	c.reg = reg
	c.policyHash = hash
	c.mu.Unlock()
	return nil
}

// Check validates a proposed call and returns the decision.
func (c *Client) Check(ctx context.Context, call Call) (Result, error) {
	if c.cfg.serverURL != "" {
		return c.checkRemote(ctx, call)
	}
	return c.checkLocal(call)
}

// Require validates a proposed call and returns a *BlockedError if it
// is denied. Use as the last gate before signing.
func (c *Client) Require(ctx context.Context, call Call) error {
	res, err := c.Check(ctx, call)
	if err != nil {
		return err
	}
	if !res.Admitted() {
		return &BlockedError{Call: call, Kind: res.Kind, Reason: res.Reason}
	}
	return nil
}

func (c *Client) checkLocal(call Call) (Result, error) {
	sender, err := model.ParseAddress(call.Sender)
	if err != nil {
		return Result{}, fmt.Errorf("callguard: sender: %w", err)
	}
	target, err := model.ParseAddress(call.Target)
	if err != nil {
		return Result{}, fmt.Errorf("callguard: target: %w", err)
	}

	c.mu.RLock()
	snap := c.reg.Snapshot()
	hash := c.policyHash
	c.mu.RUnlock()

	r := guard.Validate(snap, sender, target, call.Payload)
	return Result{
		Decision:   Decision(r.Decision),
		Kind:       string(r.Kind),
		Reason:     r.Reason,
		PolicyHash: hash,
	}, nil
}

func (c *Client) checkRemote(ctx context.Context, call Call) (Result, error) {
	body, err := json.Marshal(map[string]string{
		"sender":  call.Sender,
		"target":  call.Target,
		"payload": "0x" + hex.EncodeToString(call.Payload),
	})
	if err != nil {
		return Result{}, err
	}

	url := strings.TrimSuffix(c.cfg.serverURL, "/") + "/v1/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("callguard: admission service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return Result{}, fmt.Errorf("callguard: admission service returned %d: %s", resp.StatusCode, apiErr.Error)
	}

	var wire struct {
		Decision   string `json:"decision"`
		Kind       string `json:"kind"`
		Reason     string `json:"reason"`
		PolicyHash string `json:"policy_hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Result{}, fmt.Errorf("callguard: bad admission response: %w", err)
	}

	return Result{
		Decision:   Decision(wire.Decision),
		Kind:       wire.Kind,
		Reason:     wire.Reason,
		PolicyHash: wire.PolicyHash,
	}, nil
}
