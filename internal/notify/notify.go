// Package notify fans registry change events out to webhook
// destinations so off-chain monitoring sees every whitelist mutation.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vaultops/callguard/internal/registry"
)

const (
	requestTimeout = 5 * time.Second
	maxRetries     = 3
)

var httpClient = &http.Client{Timeout: requestTimeout}

// Dispatcher fans registry change events out to matching webhooks.
type Dispatcher struct {
	configs []registry.WebhookConfig
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []registry.WebhookConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to every webhook whose kind filter matches.
// Fires goroutines — does not block the mutation path.
func (d *Dispatcher) Dispatch(event registry.Event) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if matches(cfg.Kinds, event.Kind) {
			go Send(cfg, event)
		}
	}
}

// matches treats an empty filter as "all kinds".
func matches(kinds []string, kind registry.Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if registry.Kind(k) == kind {
			return true
		}
	}
	return false
}

// Send posts a change event to a webhook endpoint with retry on 5xx.
func Send(cfg registry.WebhookConfig, event registry.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("webhook rejected: HTTP %d", resp.StatusCode)
		}
		// 5xx — retry
		lastErr = fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", maxRetries, lastErr)
}
