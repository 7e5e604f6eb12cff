package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Pinger reports reachability of an external dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates service readiness: session store reachability, a
// writable store directory, and the list of usable extraction backends.
type Checker struct {
	session  Pinger
	storeDir string
	backends []string
}

func NewChecker(session Pinger, storeDir string, backends []string) *Checker {
	return &Checker{session: session, storeDir: storeDir, backends: backends}
}

type report struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Backends []string          `json:"backends"`
}

func (c *Checker) run(ctx context.Context) report {
	rep := report{Status: "ok", Checks: map[string]string{}, Backends: c.backends}

	if c.session != nil {
		if err := c.session.Ping(ctx); err != nil {
			rep.Checks["redis"] = err.Error()
			rep.Status = "degraded"
		} else {
			rep.Checks["redis"] = "ok"
		}
	}

	probe := filepath.Join(c.storeDir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		rep.Checks["store"] = err.Error()
		rep.Status = "degraded"
	} else {
		os.Remove(probe)
		rep.Checks["store"] = "ok"
	}

	if len(c.backends) == 0 {
		rep.Checks["backends"] = "no extraction backends available"
		rep.Status = "degraded"
	}
	return rep
}

// Handler serves the readiness report, 503 when degraded.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rep := c.run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if rep.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(rep)
	}
}
