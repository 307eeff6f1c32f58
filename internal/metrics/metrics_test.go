package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	m := New()
	m.ObserveRequest("openai", OutcomeSuccess, 250*time.Millisecond)
	m.ObserveRequest("openai", OutcomeError, time.Second)
	m.ObserveRequest("ollama", OutcomeSuccess, time.Second)
	m.AddTokens("openai", 100, 20)
	m.AddTokens("openai", 0, 5)
	m.CountError("openai", "timeout")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("openai", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("openai", OutcomeError)))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.Tokens.WithLabelValues("openai", "prompt")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.Tokens.WithLabelValues("openai", "completion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("openai", "timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.CountError("openai", "transport")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Errors.WithLabelValues("openai", "transport")))
}

func TestWriteSummary(t *testing.T) {
	m := New()
	m.ObserveRequest("openrouter", OutcomeSuccess, 2*time.Second)
	m.CountError("openrouter", "upstream_policy")

	var buf bytes.Buffer
	require.NoError(t, m.WriteSummary(&buf))
	out := buf.String()
	assert.Contains(t, out, `media_summarizer_requests_total{outcome="success",provider="openrouter"} 1`)
	assert.Contains(t, out, `media_summarizer_errors_total{kind="upstream_policy",provider="openrouter"} 1`)
	assert.Contains(t, out, `media_summarizer_request_duration_seconds{provider="openrouter"} count=1 sum=2.000s`)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveRequest("x", OutcomeSuccess, time.Second)
	r.AddTokens("x", 1, 1)
	r.CountError("x", "y")
}
