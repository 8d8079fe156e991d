package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bagumbayan/brgydocs/internal/config"
)

// ReadinessChecker is a backing store the readiness check depends on.
type ReadinessChecker interface {
	Name() string
	CheckReady(ctx context.Context) error
}

type HealthHandler struct {
	checkers []ReadinessChecker
}

func NewHealthHandler(checkers ...ReadinessChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers}
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

// Live reports that the process is up.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
	})
}

// Ready answers 503 when any backing store fails its check.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Checks:    make(map[string]checkResult, len(h.checkers)),
	}
	for _, c := range h.checkers {
		if err := c.CheckReady(r.Context()); err != nil {
			resp.Status = "fail"
			resp.Checks[c.Name()] = checkResult{Status: "fail", Message: err.Error()}
			continue
		}
		resp.Checks[c.Name()] = checkResult{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status == "fail" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
