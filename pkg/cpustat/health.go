package cpustat

import (
	"fmt"
	"time"
)

// UnhealthyAfter is the number of consecutive failed reads after which the
// source is reported unhealthy rather than degraded.
const UnhealthyAfter = 3

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	// HealthOK indicates the component is functioning normally.
	HealthOK HealthStatus = "ok"
	// HealthDegraded indicates recent failures that may be transient.
	HealthDegraded HealthStatus = "degraded"
	// HealthUnhealthy indicates the component is not functioning.
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck contains the health of a Client and its components.
type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Message    string                     `json:"message,omitempty"`
}

// ComponentHealth represents the health of one component.
type ComponentHealth struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message"`
	// LastUpdated is when the component last succeeded. Zero if never.
	LastUpdated time.Time `json:"last_updated"`
}

// IsHealthy returns true if the overall status is HealthOK.
func (h HealthCheck) IsHealthy() bool {
	return h.Status == HealthOK
}

// IsDegraded returns true if the overall status is HealthDegraded.
func (h HealthCheck) IsDegraded() bool {
	return h.Status == HealthDegraded
}

// IsUnhealthy returns true if the overall status is HealthUnhealthy.
func (h HealthCheck) IsUnhealthy() bool {
	return h.Status == HealthUnhealthy
}

// Health reports whether the client's source has been readable and whether
// the last configuration reload succeeded. The overall status is the worst
// component status.
func (c *Client) Health() HealthCheck {
	now := time.Now()
	h := HealthCheck{
		Status:     HealthOK,
		Timestamp:  now,
		Uptime:     now.Sub(c.started),
		Components: make(map[string]ComponentHealth, 2),
	}

	c.mu.RLock()
	closed := c.closed
	source := describeSource(c.source)
	c.mu.RUnlock()

	var lastOK time.Time
	if ns := c.lastSuccess.Load(); ns != 0 {
		lastOK = time.Unix(0, ns)
	}
	failures := c.failures.Load()

	src := ComponentHealth{LastUpdated: lastOK}
	switch {
	case closed:
		src.Status, src.Message = HealthUnhealthy, "client closed"
	case failures >= UnhealthyAfter:
		src.Status, src.Message = HealthUnhealthy, fmt.Sprintf("%s: %d consecutive reads failed", source, failures)
	case failures > 0:
		src.Status, src.Message = HealthDegraded, fmt.Sprintf("%s: last read failed", source)
	default:
		src.Status, src.Message = HealthOK, source
	}
	h.Components["source"] = src

	cfg := ComponentHealth{Status: HealthOK, Message: "no reload attempted"}
	if c.configPath != "" {
		cfg.Message = c.configPath
	}
	if r, ok := c.reloadErr.Load().(reloadError); ok && r.error != nil {
		cfg.Status, cfg.Message = HealthDegraded, fmt.Sprintf("last reload failed: %v", r.error)
	}
	h.Components["config"] = cfg

	for name, comp := range h.Components {
		if worse(comp.Status, h.Status) {
			h.Status = comp.Status
			h.Message = name + ": " + comp.Message
		}
	}
	return h
}

func worse(a, b HealthStatus) bool {
	rank := map[HealthStatus]int{HealthOK: 0, HealthDegraded: 1, HealthUnhealthy: 2}
	return rank[a] > rank[b]
}
