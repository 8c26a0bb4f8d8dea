// Package health runs periodic checks over the storefront's dependencies
// and serves the per-component aggregate. The flat /health endpoint stays in
// the router; this checker backs the detailed /health/components view.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
)

// Status of one component.
type Status string

const (
	StatusUp Status = "up"
	// StatusDown fails the aggregate when the component is critical.
	StatusDown Status = "down"
	// StatusDegraded marks optional dependencies that are unreachable.
	StatusDegraded Status = "degraded"
)

// Component is the last observed state of one checked dependency.
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one dependency and reports its status.
type Check func() (Status, string, error)

// Checker runs registered checks on a fixed period and caches the results,
// so the HTTP handler never probes dependencies inline.
type Checker struct {
	mu         sync.RWMutex
	checks     map[string]Check
	components map[string]*Component

	period time.Duration
	log    *logger.Logger
}

func NewChecker(log *logger.Logger, period time.Duration) *Checker {
	c := &Checker{
		checks:     make(map[string]Check),
		components: make(map[string]*Component),
		period:     period,
		log:        log,
	}
	c.RegisterCheck("self", func() (Status, string, error) {
		return StatusUp, "health checker running", nil
	})
	return c
}

// RegisterCheck adds a named check. Until the first run the component
// reports down.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Description: "not checked yet",
	}
}

// RunChecks executes every registered check once.
func (c *Checker) RunChecks() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, check := range c.checks {
		status, description, err := check()

		component := c.components[name]
		component.Status = status
		component.Description = description
		component.LastChecked = time.Now()
		component.Error = ""

		if err != nil {
			component.Error = err.Error()
			c.log.Error("health check failed",
				"component", name,
				"status", string(status),
				"error", err.Error(),
			)
		}
	}
}

// Start runs all checks once immediately, then on every period tick.
func (c *Checker) Start() {
	go func() {
		c.RunChecks()

		ticker := time.NewTicker(c.period)
		defer ticker.Stop()
		for range ticker.C {
			c.RunChecks()
		}
	}()
}

// Snapshot returns a copy of every component's last observed state.
func (c *Checker) Snapshot() map[string]*Component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*Component, len(c.components))
	for name, component := range c.components {
		copied := *component
		out[name] = &copied
	}
	return out
}

// Healthy reports whether every critical component is up. Only the database
// is critical; the presence mirror and chat hub merely degrade.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, component := range c.components {
		if name == "database" && component.Status == StatusDown {
			return false
		}
	}
	return true
}

// HTTPHandler serves the component aggregate, answering 503 when a critical
// component is down.
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		status := "ok"
		if !c.Healthy() {
			status = "unavailable"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		response := map[string]interface{}{
			"status":     status,
			"timestamp":  time.Now(),
			"components": c.Snapshot(),
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			c.log.LogError(err, "failed to encode health response")
		}
	}
}

// RegisterDatabaseCheck probes the primary datastore.
func (c *Checker) RegisterDatabaseCheck(pingFunc func() error) {
	c.RegisterCheck("database", func() (Status, string, error) {
		if err := pingFunc(); err != nil {
			return StatusDown, "database connection failed", err
		}
		return StatusUp, "database connection established", nil
	})
}

// RegisterRedisCheck probes the presence mirror. The mirror is best-effort,
// so a dead Redis only degrades the system.
func (c *Checker) RegisterRedisCheck(pingFunc func() error) {
	c.RegisterCheck("redis", func() (Status, string, error) {
		if err := pingFunc(); err != nil {
			return StatusDegraded, "presence mirror unreachable", err
		}
		return StatusUp, "presence mirror reachable", nil
	})
}

// RegisterChatHubCheck reports the number of live chat subscriptions.
func (c *Checker) RegisterChatHubCheck(connFunc func() int) {
	c.RegisterCheck("chat-hub", func() (Status, string, error) {
		return StatusUp, fmt.Sprintf("%d live chat subscriptions", connFunc()), nil
	})
}
