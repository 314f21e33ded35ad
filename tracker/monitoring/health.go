package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker reports watch-loop liveness: healthy while evaluations keep arriving
// within the allowed staleness bound.
type HealthChecker struct {
	maxStaleness time.Duration

	mu       sync.Mutex
	lastEval time.Time
	lastErr  string
}

// NewHealthChecker builds a checker that reports unhealthy once no evaluation has been
// observed for maxStaleness. A zero maxStaleness disables the staleness check.
func NewHealthChecker(maxStaleness time.Duration) *HealthChecker {
	return &HealthChecker{maxStaleness: maxStaleness}
}

// ObserveEvaluation records a completed sensor evaluation and its error, if any.
func (h *HealthChecker) ObserveEvaluation(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastEval = time.Now()
	if err != nil {
		h.lastErr = err.Error()
	} else {
		h.lastErr = ""
	}
}

type healthStatus struct {
	Status    string `json:"status"`
	LastEval  string `json:"last_evaluation,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// ServeHTTP serves the health report: 200 while evaluations are fresh and clean, 503
// otherwise.
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	status := healthStatus{Status: "ok", LastError: h.lastErr}
	if !h.lastEval.IsZero() {
		status.LastEval = h.lastEval.UTC().Format(time.RFC3339)
	}
	stale := h.maxStaleness > 0 && !h.lastEval.IsZero() && time.Since(h.lastEval) > h.maxStaleness
	h.mu.Unlock()

	code := http.StatusOK
	if stale || status.LastError != "" {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
