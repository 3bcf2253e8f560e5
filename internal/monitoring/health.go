package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

type HealthChecker struct {
	mu             sync.RWMutex
	lastValidation time.Time
	lastPrice      float64
	providerOK     bool
	errors         []string
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastValidation time.Time `json:"last_validation"`
	LastPrice      float64   `json:"last_price"`
	ProviderOK     bool      `json:"provider_ok"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.providerOK {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastValidation: h.lastValidation,
		LastPrice:      h.lastPrice,
		ProviderOK:     h.providerOK,
		Uptime:         time.Since(startTime).String(),
		Errors:         h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func (h *HealthChecker) SetProviderOK(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.providerOK = ok
}

func (h *HealthChecker) UpdateValidation(price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastValidation = time.Now()
	h.lastPrice = price
}

func (h *HealthChecker) AddError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 20 {
		h.errors = h.errors[1:]
	}
}
