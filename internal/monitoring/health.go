package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// maxRecentErrors bounds the error list in the health report; the total
// count keeps growing, the detail does not.
const maxRecentErrors = 10

// HealthChecker reports backtest/engine liveness over HTTP.
type HealthChecker struct {
	mu           sync.RWMutex
	lastBar      time.Time
	lastTick     time.Time
	lastEventBad bool
	errorCount   int
	recentErrors []string
}

type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastBar      time.Time `json:"last_bar"`
	Uptime       string    `json:"uptime"`
	ErrorCount   int       `json:"error_count"`
	RecentErrors []string  `json:"recent_errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// BarProcessed notes that a bar for the given date was processed.
func (h *HealthChecker) BarProcessed(barDate time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastBar = barDate
	h.lastTick = time.Now()
	h.lastEventBad = false
}

// ReportError appends an error to the health report. Only the most
// recent errors are retained in full.
func (h *HealthChecker) ReportError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorCount++
	h.lastEventBad = true
	h.recentErrors = append(h.recentErrors, msg)
	if len(h.recentErrors) > maxRecentErrors {
		h.recentErrors = h.recentErrors[len(h.recentErrors)-maxRecentErrors:]
	}
}

// status classifies the run: unhealthy while the latest event is an
// error (the run may be stuck on bad input), degraded once errors have
// occurred but bars are flowing again, healthy otherwise.
func (h *HealthChecker) status() string {
	if h.errorCount == 0 {
		return "healthy"
	}
	if h.lastEventBad {
		return "unhealthy"
	}
	return "degraded"
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := h.status()
	if status == "unhealthy" {
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:       status,
		Timestamp:    time.Now(),
		LastBar:      h.lastBar,
		Uptime:       time.Since(startTime).String(),
		ErrorCount:   h.errorCount,
		RecentErrors: h.recentErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
