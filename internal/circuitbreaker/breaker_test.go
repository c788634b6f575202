package circuitbreaker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

func goodQuote(t *testing.T) model.FeeQuote {
	t.Helper()
	req := model.QuoteRequest{
		Token:       "USDC",
		SourceChain: "ethereum",
		DestChain:   "optimism",
		Amount:      decimal.NewFromInt(1000),
	}
	q, err := model.NewFeeQuote("across", req, decimal.RequireFromString("2.5"),
		map[string]decimal.Decimal{
			"relay_fee": decimal.RequireFromString("0.5"),
			"lp_fee":    decimal.NewFromInt(2),
		})
	require.NoError(t, err)
	return q
}

func TestCircuitBreaker_BasicFunctionality(t *testing.T) {
	cb := New("across", Thresholds{MaxConsecutiveFailures: 3})
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit breaker should start closed")
	assert.NoError(t, cb.Allow(), "Closed circuit should allow fetches")

	cb.RecordSuccess(goodQuote(t))
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should remain closed after a success")
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := New("across", Thresholds{MaxConsecutiveFailures: 3})

	cb.RecordFailure(errors.New("connection refused"))
	cb.RecordFailure(errors.New("connection refused"))
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should stay closed below the failure threshold")

	cb.RecordFailure(errors.New("connection refused"))
	assert.Equal(t, StateOpen, cb.GetState(), "Circuit should open at the failure threshold")

	err := cb.Allow()
	require.Error(t, err, "Open circuit should block fetches")
	assert.True(t, errors.Is(err, ErrOpen), "Allow should wrap ErrOpen")
	assert.Contains(t, err.Error(), "across", "Error should name the protocol")
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := New("hop", Thresholds{MaxConsecutiveFailures: 3})

	cb.RecordFailure(errors.New("timeout"))
	cb.RecordFailure(errors.New("timeout"))
	cb.RecordSuccess(goodQuote(t))
	cb.RecordFailure(errors.New("timeout"))
	cb.RecordFailure(errors.New("timeout"))

	assert.Equal(t, StateClosed, cb.GetState(), "Interleaved success should reset the streak")

	cb.RecordFailure(errors.New("timeout"))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_Recovery(t *testing.T) {
	cb := New("across", Thresholds{MaxConsecutiveFailures: 1}).
		WithResetDelay(50 * time.Millisecond).
		WithSuccessThreshold(1)

	cb.RecordFailure(errors.New("boom"))
	require.Equal(t, StateOpen, cb.GetState(), "Circuit should be open after trip")
	require.Error(t, cb.Allow(), "Open circuit should block before the reset delay")

	// Wait for reset delay
	time.Sleep(60 * time.Millisecond)

	assert.NoError(t, cb.Allow(), "A probe should pass after the reset delay")
	assert.Equal(t, StateHalfOpen, cb.GetState(), "Circuit should be half-open during the probe")

	cb.RecordSuccess(goodQuote(t))
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should close after a successful probe")
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New("hop", Thresholds{MaxConsecutiveFailures: 1}).
		WithResetDelay(50 * time.Millisecond)

	cb.RecordFailure(errors.New("boom"))
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, cb.Allow())
	require.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordFailure(errors.New("still broken"))
	assert.Equal(t, StateOpen, cb.GetState(), "A failed probe should reopen the circuit")
	assert.Error(t, cb.Allow(), "Fetches should be blocked again after a failed probe")
}

func TestCircuitBreaker_SuspiciousQuotes(t *testing.T) {
	cb := New("hop", Thresholds{MaxConsecutiveFailures: 2, SuspiciousTrips: true})

	cb.RecordSuspicious("fee exceeds the transfer amount")
	assert.Equal(t, StateClosed, cb.GetState())

	cb.RecordSuspicious("fee exceeds the transfer amount")
	assert.Equal(t, StateOpen, cb.GetState(), "Repeated suspicious quotes should trip the circuit")
}

func TestCircuitBreaker_SuspiciousIgnoredWhenDisabled(t *testing.T) {
	cb := New("hop", Thresholds{MaxConsecutiveFailures: 1, SuspiciousTrips: false})

	cb.RecordSuspicious("fee exceeds the transfer amount")
	cb.RecordSuspicious("fee exceeds the transfer amount")
	assert.Equal(t, StateClosed, cb.GetState(), "Suspicious quotes should not trip when disabled")
}

func TestCircuitBreaker_LastGoodQuote(t *testing.T) {
	cb := New("across", Thresholds{MaxConsecutiveFailures: 3})

	_, ok := cb.LastGoodQuote()
	assert.False(t, ok, "LastGoodQuote should report false before any success")

	want := goodQuote(t)
	cb.RecordSuccess(want)

	got, ok := cb.LastGoodQuote()
	require.True(t, ok, "LastGoodQuote should report true after a success")
	assert.True(t, got.TotalFee.Equal(want.TotalFee), "LastGoodQuote should return the recorded quote")
}

func TestCircuitBreaker_CallbackExecution(t *testing.T) {
	tripped := make(chan string, 1)
	cb := New("across", Thresholds{MaxConsecutiveFailures: 1}).
		WithTripCallback(func(protocol, reason string) {
			tripped <- fmt.Sprintf("%s: %s", protocol, reason)
		})

	cb.RecordFailure(errors.New("connection refused"))

	select {
	case msg := <-tripped:
		assert.Contains(t, msg, "across", "Callback should receive the protocol")
		assert.Contains(t, msg, "connection refused", "Callback reason should explain the trip")
	case <-time.After(time.Second):
		t.Fatal("Trip callback was not executed")
	}
}

func TestCircuitBreaker_ManualReset(t *testing.T) {
	cb := New("hop", Thresholds{MaxConsecutiveFailures: 1})

	cb.RecordFailure(errors.New("boom"))
	require.Equal(t, StateOpen, cb.GetState(), "Circuit should be open after trip")

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should be closed after manual reset")
	assert.NoError(t, cb.Allow(), "Fetches should pass after manual reset")
}

func TestCircuitBreaker_StateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
