package server

import (
	"github.com/zed/txfib/internal/sysmon"
)

// FibResponse is the body of a successful computation.
type FibResponse struct {
	N          uint64     `json:"n"`
	Strategy   string     `json:"strategy"`
	Mode       string     `json:"mode"`
	Value      string     `json:"value"`
	Approx     bool       `json:"approx"`
	Digits     int        `json:"digits"`
	Duration   string     `json:"duration"`
	DurationMS float64    `json:"duration_ms"`
	Ticks      uint64     `json:"ticks"`
	Steps      uint64     `json:"steps"`
	Usage      *UsageInfo `json:"usage,omitempty"`
}

// UsageInfo is the resource usage reported by a worker process.
type UsageInfo struct {
	UserTimeMS   float64 `json:"user_time_ms"`
	SystemTimeMS float64 `json:"system_time_ms"`
	MaxRSSKB     int64   `json:"max_rss_kb"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// StrategyInfo describes one strategy for GET /strategies.
type StrategyInfo struct {
	Name        string   `json:"name"`
	Time        string   `json:"time"`
	Memory      string   `json:"memory"`
	DefaultMode string   `json:"default_mode"`
	Modes       []string `json:"modes"`
	UsesCache   bool     `json:"uses_cache"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// SchedulerStats reports the cooperative loop.
type SchedulerStats struct {
	Queued     int    `json:"queued"`
	StepBudget int    `json:"step_budget"`
	Ticks      uint64 `json:"ticks"`
	Completed  uint64 `json:"completed"`
	Failed     uint64 `json:"failed"`
	Cancelled  uint64 `json:"cancelled"`
}

// CacheStats reports one memo cache.
type CacheStats struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Len      int    `json:"len"`
	Pinned   int    `json:"pinned"`
}

// PoolStats reports the thread offload pool.
type PoolStats struct {
	Size   int `json:"size"`
	Queued int `json:"queued"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Scheduler SchedulerStats `json:"scheduler"`
	Caches    []CacheStats   `json:"caches"`
	Pool      *PoolStats     `json:"pool,omitempty"`
	Resources sysmon.Stats   `json:"resources"`
}
