package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/logging"
	"github.com/zed/txfib/internal/orchestration"
)

// handleFib serves GET /fib/{strategy}/{n}?budget=&capacity=&mode=.
func (s *Server) handleFib(w http.ResponseWriter, r *http.Request) {
	s.compute(w, r, r.PathValue("strategy"))
}

// handleAlias serves the fixed-strategy routes.
func (s *Server) handleAlias(strategy fibonacci.Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.compute(w, r, strategy.String())
	}
}

// compute dispatches one computation and waits for it under the request
// context: a client that goes away cancels it.
func (s *Server) compute(w http.ResponseWriter, r *http.Request, strategy string) {
	n, err := orchestration.ParseIndex(r.PathValue("n"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.requestOptions(strategy, r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	c, err := s.dispatcher.Compute(r.Context(), strategy, n, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := c.Wait(r.Context())
	if err != nil {
		c.Cancel()
		s.writeError(w, r, err)
		return
	}
	elapsed := time.Since(start)

	resp := FibResponse{
		N:          n,
		Strategy:   c.Strategy.String(),
		Mode:       c.Mode.String(),
		Value:      v.String(),
		Approx:     v.Approx,
		Digits:     v.Digits(),
		Duration:   elapsed.String(),
		DurationMS: float64(elapsed.Microseconds()) / 1000,
		Ticks:      c.Ticks(),
		Steps:      c.Steps(),
	}
	if u, ok := c.Usage(); ok {
		resp.Usage = &UsageInfo{
			UserTimeMS:   float64(u.UserTime.Microseconds()) / 1000,
			SystemTimeMS: float64(u.SystemTime.Microseconds()) / 1000,
			MaxRSSKB:     u.MaxRSS,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// requestOptions reads the optional query parameters. The server-wide mode
// applies only to strategies that allow it.
func (s *Server) requestOptions(strategy string, q url.Values) (orchestration.Options, error) {
	opts := orchestration.Options{Timeout: s.timeout}
	if v := q.Get("budget"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil || b <= 0 {
			return opts, apperrors.Errorf(apperrors.KindInvalidRequest, "budget must be a positive integer, got %q", v)
		}
		opts.StepBudget = b
	}
	if v := q.Get("capacity"); v != "" {
		c, err := strconv.Atoi(v)
		if err != nil || c < 0 {
			return opts, apperrors.Errorf(apperrors.KindInvalidRequest, "capacity must be a non-negative integer, got %q", v)
		}
		opts.CacheCapacity = c
	}
	if v := q.Get("mode"); v != "" {
		m, err := fibonacci.ParseMode(v)
		if err != nil {
			return opts, apperrors.Errorf(apperrors.KindInvalidRequest, "%v", err)
		}
		opts.Mode = m
	} else if s.mode != fibonacci.ModeDefault {
		if st, err := fibonacci.ParseStrategy(strategy); err == nil && st.Profile().Allows(s.mode) {
			opts.Mode = s.mode
		}
	}
	return opts, nil
}

// handleStrategies serves GET /strategies.
func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	out := make([]StrategyInfo, 0, len(fibonacci.Strategies()))
	for _, st := range fibonacci.Strategies() {
		p := st.Profile()
		modes := make([]string, len(p.Modes))
		for i, m := range p.Modes {
			modes[i] = m.String()
		}
		out = append(out, StrategyInfo{
			Name:        st.String(),
			Time:        p.Time,
			Memory:      p.Memory,
			DefaultMode: p.DefaultMode.String(),
			Modes:       modes,
			UsesCache:   st.UsesCache(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

// handleStats serves GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	loop := s.dispatcher.Loop()
	ls := loop.Stats()
	resp := StatsResponse{
		Scheduler: SchedulerStats{
			Queued:     loop.Len(),
			StepBudget: loop.StepBudget(),
			Ticks:      ls.Ticks,
			Completed:  ls.Completed,
			Failed:     ls.Failed,
			Cancelled:  ls.Cancelled,
		},
		Resources: s.sampler.Sample(),
	}
	for _, c := range s.dispatcher.Caches() {
		resp.Caches = append(resp.Caches, CacheStats{
			Name:     c.Name(),
			Capacity: c.Capacity(),
			Len:      c.Len(),
			Pinned:   c.Pinned(),
		})
	}
	if s.pool != nil {
		resp.Pool = &PoolStats{Size: s.pool.Size(), Queued: s.pool.Queued()}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleMetrics serves GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeErrorStatus(w, r, apperrors.Errorf(apperrors.KindInvalidRequest, "method %s not allowed", r.Method), http.StatusMethodNotAllowed)
		return
	}
	s.metrics.WritePrometheus(w, r)
}

// writeError answers with the HTTP status of err's kind.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorStatus(w, r, err, apperrors.HTTPStatus(err))
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, err error, code int) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", err,
			logging.String("request_id", RequestID(r.Context())),
			logging.String("path", r.URL.Path))
	}
	s.writeJSON(w, code, ErrorResponse{
		Error:     apperrors.KindOf(err).String(),
		Message:   err.Error(),
		RequestID: RequestID(r.Context()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response write failed", logging.Err(err))
	}
}
