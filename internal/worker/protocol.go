package worker

import (
	"fmt"
	"math/big"
	"time"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
)

// Request is the single message a worker process reads from stdin.
type Request struct {
	Strategy string `json:"strategy"`
	N        uint64 `json:"n"`
}

// Usage is the resource consumption of the worker process.
type Usage struct {
	UserTime   time.Duration `json:"user_time_ns"`
	SystemTime time.Duration `json:"system_time_ns"`
	// MaxRSS is the peak resident set size in kilobytes.
	MaxRSS int64 `json:"max_rss_kb"`
}

// Response is the single message a worker process writes to stdout. Exactly
// one of Value, Float or Error is meaningful.
type Response struct {
	N        uint64  `json:"n"`
	Strategy string  `json:"strategy"`
	Value    string  `json:"value,omitempty"`
	Approx   bool    `json:"approx,omitempty"`
	Float    float64 `json:"float,omitempty"`
	Usage    Usage   `json:"usage"`
	Error    string  `json:"error,omitempty"`
	Kind     string  `json:"kind,omitempty"`
}

// NewResponse encodes the outcome of computing req.
func NewResponse(req Request, v fibonacci.Value, err error) Response {
	resp := Response{N: req.N, Strategy: req.Strategy}
	if err != nil {
		resp.Error = err.Error()
		resp.Kind = apperrors.KindOf(err).String()
		return resp
	}
	if v.Approx {
		resp.Approx = true
		resp.Float = v.Float
		return resp
	}
	resp.Value = v.Int.String()
	return resp
}

// Result decodes the value carried by the response. A reported failure is
// returned with its original kind.
func (r Response) Result() (fibonacci.Value, error) {
	if r.Error != "" {
		kind := apperrors.ParseKind(r.Kind)
		if kind == apperrors.KindUnknown {
			kind = apperrors.KindOffloadFailure
		}
		return fibonacci.Value{}, apperrors.NewComputeError(kind, r.Strategy, r.N, fmt.Errorf("worker: %s", r.Error))
	}
	if r.Approx {
		return fibonacci.Approximate(r.Float), nil
	}
	v, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return fibonacci.Value{}, apperrors.NewComputeError(apperrors.KindOffloadFailure, r.Strategy, r.N,
			fmt.Errorf("worker returned a malformed value %q", truncate(r.Value, 32)))
	}
	return fibonacci.Exact(v), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
