package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
)

func serve(t *testing.T, input string) Response {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, Serve(context.Background(), strings.NewReader(input), &out))
	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	return resp
}

func TestServe_ComputesEveryStrategy(t *testing.T) {
	t.Parallel()
	for _, s := range fibonacci.Strategies() {
		t.Run(s.String(), func(t *testing.T) {
			t.Parallel()
			resp := serve(t, `{"strategy":"`+s.String()+`","n":30}`)
			assert.Equal(t, uint64(30), resp.N)
			assert.Equal(t, s.String(), resp.Strategy)
			assert.Empty(t, resp.Error)

			v, err := resp.Result()
			require.NoError(t, err)
			assert.True(t, v.Equal(fibonacci.Exact(fibonacci.LinearFib(30)), fibonacci.ApproxEpsilon), "got %v", v)
			assert.Equal(t, s == fibonacci.ClosedFormApprox, resp.Approx)
		})
	}
}

func TestServe_LargeExactValue(t *testing.T) {
	t.Parallel()
	resp := serve(t, `{"strategy":"closedFormExact","n":5000}`)
	v, err := resp.Result()
	require.NoError(t, err)
	assert.Zero(t, v.Int.Cmp(fibonacci.LinearFib(5000)))
}

func TestServe_ReportsComputationFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"unknown strategy", `{"strategy":"matrix","n":10}`, apperrors.ErrInvalidRequest},
		{"approx overflow", `{"strategy":"closedFormApprox","n":2000}`, apperrors.ErrOverflow},
		{"naive overflow", `{"strategy":"unmemoizedRecursive","n":94}`, apperrors.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := serve(t, tt.input)
			assert.NotEmpty(t, resp.Error)
			_, err := resp.Result()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestServe_RejectsMalformedRequests(t *testing.T) {
	t.Parallel()
	for _, input := range []string{"", "not json", `{"strategy":"linear","n":-1}`, `{"algo":"linear"}`} {
		var out bytes.Buffer
		err := Serve(context.Background(), strings.NewReader(input), &out)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest, "input %q", input)
		assert.Zero(t, out.Len())
	}
}

func TestServe_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := Handle(ctx, Request{Strategy: "linear", N: 100000})
	_, err := resp.Result()
	assert.ErrorIs(t, err, apperrors.ErrCancelled)
}

func TestResponse_Result(t *testing.T) {
	t.Parallel()
	_, err := Response{N: 3, Strategy: "linear", Value: "12x"}.Result()
	assert.ErrorIs(t, err, apperrors.ErrOffloadFailure)

	_, err = Response{N: 3, Strategy: "linear", Error: "boom", Kind: "Nonsense"}.Result()
	assert.ErrorIs(t, err, apperrors.ErrOffloadFailure)

	_, err = Response{N: 3, Strategy: "linear", Error: "deadline", Kind: "Timeout"}.Result()
	assert.ErrorIs(t, err, apperrors.ErrTimeout)

	v, err := Response{Approx: true, Float: 2.5}.Result()
	require.NoError(t, err)
	assert.True(t, v.Approx)
}

func TestNewResponse_RoundTrip(t *testing.T) {
	t.Parallel()
	req := Request{Strategy: "logarithmic", N: 90}
	resp := NewResponse(req, fibonacci.Exact(fibonacci.LinearFib(90)), nil)
	assert.Equal(t, "2880067194370816120", resp.Value)

	failed := NewResponse(req, fibonacci.Value{}, errors.New("plain"))
	assert.Equal(t, "Unknown", failed.Kind)
	_, err := failed.Result()
	assert.ErrorIs(t, err, apperrors.ErrOffloadFailure)
}

func TestSelfUsage(t *testing.T) {
	t.Parallel()
	u := selfUsage()
	assert.GreaterOrEqual(t, int64(u.UserTime), int64(0))
	assert.GreaterOrEqual(t, u.MaxRSS, int64(0))
}
