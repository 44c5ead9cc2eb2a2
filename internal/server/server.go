// Package server exposes the guard as a standalone admission service:
// a JSON API for validate plus a small governance-gated admin surface.
// Decisions run fully in parallel against immutable registry
// snapshots; only mutations and policy reloads take the write path.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vaultops/callguard/internal/guard"
	"github.com/vaultops/callguard/internal/model"
	"github.com/vaultops/callguard/internal/notify"
	"github.com/vaultops/callguard/internal/registry"
)

// Config holds admission service configuration.
type Config struct {
	Addr       string
	PolicyPath string
	Logger     *zap.Logger
}

// Server hosts the admission and admin endpoints.
type Server struct {
	mu         sync.RWMutex
	reg        *registry.Registry
	policyHash string

	cfg Config
	log *zap.Logger
	srv *http.Server
}

// New loads the policy file and wires the service together.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{cfg: cfg, log: log}
	if err := s.ReloadPolicy(); err != nil {
		return nil, err
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// ReloadPolicy rebuilds the registry from the policy file and swaps it
// in atomically. In-flight decisions finish against the snapshot they
// started with.
func (s *Server) ReloadPolicy() error {
	cfg, hash, err := registry.LoadWithHash(s.cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	reg, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build registry: %w", err)
	}

	dispatcher := notify.NewDispatcher(cfg.Webhooks)
	reg.SetNotifier(func(e registry.Event) {
		s.log.Info("registry mutated",
			zap.String("kind", string(e.Kind)),
			zap.String("key", e.Key),
			zap.String("note", e.Note))
		dispatcher.Dispatch(e)
	})

	s.mu.Lock()
	s.reg = reg
	s.policyHash = hash
	s.mu.Unlock()

	s.log.Info("policy loaded", zap.String("hash", hash))
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Get("/registry", s.handleRegistryInfo)
		r.Post("/registry/insert", s.handleMutate(true))
		r.Post("/registry/remove", s.handleMutate(false))
	})
	return r
}

// Serve starts the HTTP server. Blocks until Shutdown.
func (s *Server) Serve() error {
	s.log.Info("admission service listening", zap.String("addr", s.cfg.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) registry() *registry.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg
}

// ValidateRequest is one proposed call.
type ValidateRequest struct {
	Sender  string `json:"sender"`
	Target  string `json:"target"`
	Payload string `json:"payload"` // 0x-prefixed calldata
}

// ValidateResponse carries the decision and the policy hash it was
// made under.
type ValidateResponse struct {
	model.Result
	PolicyHash string `json:"policy_hash"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	sender, err := model.ParseAddress(req.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, err := model.ParseAddress(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(req.Payload, "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload hex: %w", err))
		return
	}

	s.mu.RLock()
	snap := s.reg.Snapshot()
	hash := s.policyHash
	s.mu.RUnlock()

	res := guard.Validate(snap, sender, target, payload)
	s.log.Info("admission decision",
		zap.String("sender", sender.String()),
		zap.String("target", target.String()),
		zap.String("decision", string(res.Decision)),
		zap.String("kind", string(res.Kind)))

	writeJSON(w, http.StatusOK, ValidateResponse{Result: res, PolicyHash: hash})
}

// MutateRequest is one admin mutation. The caller must be the
// governance principal; the registry enforces that, not the server.
type MutateRequest struct {
	Caller string `json:"caller"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Note   string `json:"note"`
}

func (s *Server) handleMutate(insert bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MutateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
			return
		}
		caller, err := model.ParseAddress(req.Caller)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		reg := s.registry()
		if insert {
			err = reg.Insert(caller, registry.Kind(req.Kind), req.Key, req.Note)
		} else {
			err = reg.Remove(caller, registry.Kind(req.Kind), req.Key, req.Note)
		}
		switch {
		case errors.Is(err, registry.ErrNotGovernance):
			writeError(w, http.StatusForbidden, err)
		case err != nil:
			writeError(w, http.StatusBadRequest, err)
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	}
}

func (s *Server) handleRegistryInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap := s.reg.Snapshot()
	hash := s.policyHash
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"policy_hash":     hash,
		"governance":      snap.GovernancePrincipal().String(),
		"any_asset":       snap.AnyAsset(),
		"call_site_count": snap.CallSiteCount(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
