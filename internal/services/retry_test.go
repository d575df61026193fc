package services

import (
	"testing"
	"time"
)

func TestRetryPolicy_TransientBackoff(t *testing.T) {
	policy := newRetryPolicy()
	cerr := &ClassifyError{Kind: ClassifyTransient, Reason: "upstream 500"}

	action := policy.NextAction(0, cerr)
	if !action.Retry {
		t.Fatal("first transient failure should be retried")
	}
	if action.Wait != time.Second {
		t.Errorf("attempt 0 wait = %s, expected 1s", action.Wait)
	}

	action = policy.NextAction(1, cerr)
	if !action.Retry {
		t.Fatal("second transient failure should be retried")
	}
	if action.Wait != 2*time.Second {
		t.Errorf("attempt 1 wait = %s, expected 2s", action.Wait)
	}
}

func TestRetryPolicy_AttemptBound(t *testing.T) {
	policy := newRetryPolicy()
	cerr := &ClassifyError{Kind: ClassifyTransient, Reason: "upstream 500"}

	// The third attempt (index 2) is the last one allowed
	if action := policy.NextAction(2, cerr); action.Retry {
		t.Error("no retry should be scheduled after the final attempt")
	}
	if action := policy.NextAction(5, cerr); action.Retry {
		t.Error("no retry beyond the attempt bound")
	}
}

func TestRetryPolicy_RateLimitHintAuthoritative(t *testing.T) {
	policy := newRetryPolicy()

	cerr := &ClassifyError{Kind: ClassifyRateLimited, RetryAfter: 7 * time.Second}
	action := policy.NextAction(0, cerr)
	if !action.Retry {
		t.Fatal("rate limited call should be retried")
	}
	if action.Wait != 7*time.Second {
		t.Errorf("wait = %s, expected the 7s hint to win over backoff", action.Wait)
	}

	// Hint also applies on later attempts, not the exponential schedule
	action = policy.NextAction(1, cerr)
	if action.Wait != 7*time.Second {
		t.Errorf("attempt 1 wait = %s, expected 7s", action.Wait)
	}
}

func TestRetryPolicy_RateLimitDefaultWait(t *testing.T) {
	policy := newRetryPolicy()

	cerr := &ClassifyError{Kind: ClassifyRateLimited}
	action := policy.NextAction(0, cerr)
	if !action.Retry {
		t.Fatal("rate limited call should be retried")
	}
	if action.Wait != defaultRateLimitWait {
		t.Errorf("wait = %s, expected default %s", action.Wait, defaultRateLimitWait)
	}
}

func TestRetryPolicy_NonRetryableStopsImmediately(t *testing.T) {
	policy := newRetryPolicy()

	for _, kind := range []string{ClassifyNotConfigured, ClassifyPermanent} {
		cerr := &ClassifyError{Kind: kind}
		if action := policy.NextAction(0, cerr); action.Retry {
			t.Errorf("kind %q should never be retried", kind)
		}
	}

	if action := policy.NextAction(0, nil); action.Retry {
		t.Error("nil error should not schedule a retry")
	}
}

func TestClassifyError_Retryable(t *testing.T) {
	tests := []struct {
		kind      string
		retryable bool
	}{
		{ClassifyTransient, true},
		{ClassifyRateLimited, true},
		{ClassifyNotConfigured, false},
		{ClassifyPermanent, false},
	}

	for _, tt := range tests {
		cerr := &ClassifyError{Kind: tt.kind}
		if got := cerr.Retryable(); got != tt.retryable {
			t.Errorf("Retryable(%q) = %v, expected %v", tt.kind, got, tt.retryable)
		}
	}
}
