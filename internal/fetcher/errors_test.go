package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status   int
		wantType ErrorType
		wantKind Kind
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit, KindTransient},
		{http.StatusRequestTimeout, ErrorTypeTimeout, KindTransient},
		{http.StatusInternalServerError, ErrorTypeServer, KindTransient},
		{http.StatusServiceUnavailable, ErrorTypeServer, KindTransient},
		{http.StatusNotFound, ErrorTypeNotFound, KindPermanent},
		{http.StatusBadRequest, ErrorTypeClient, KindPermanent},
		{http.StatusUnauthorized, ErrorTypeClient, KindPermanent},
		{http.StatusFound, ErrorTypeUnknown, KindPermanent},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			fe := ClassifyHTTPError(tt.status)
			if fe.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", fe.Type, tt.wantType)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", fe.Kind, tt.wantKind)
			}
			if fe.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", fe.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyTransportError(t *testing.T) {
	if fe := ClassifyTransportError(context.DeadlineExceeded); fe.Type != ErrorTypeTimeout {
		t.Errorf("deadline Type = %q, want timeout", fe.Type)
	}
	if fe := ClassifyTransportError(errors.New("dial tcp: connection refused")); fe.Type != ErrorTypeNetwork || !fe.Retryable() {
		t.Errorf("dial error = %+v, want retryable network error", fe)
	}

	original := NewNotFoundError(404, "gone")
	if fe := ClassifyTransportError(fmt.Errorf("wrapped: %w", original)); fe != original {
		t.Errorf("ClassifyTransportError did not return the wrapped FetchError")
	}
}

func TestFetchError_Message(t *testing.T) {
	fe := NewServerError(503)
	fe.Attempts = 3
	got := fe.Error()
	for _, want := range []string{"server error", "status 503", "after 3 attempts"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, want it to contain %q", got, want)
		}
	}

	cause := errors.New("reset by peer")
	if !errors.Is(NewNetworkError(cause), cause) {
		t.Error("NewNetworkError does not unwrap to its cause")
	}
}

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		name    string
		backoff Backoff
		want    []time.Duration
	}{
		{
			name:    "doubling",
			backoff: Backoff{Base: time.Second, Factor: 2},
			want:    []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second},
		},
		{
			name:    "factor 1.5 from 1.5s",
			backoff: Backoff{Base: 1500 * time.Millisecond, Factor: 1.5},
			want:    []time.Duration{1500 * time.Millisecond, 2250 * time.Millisecond, 3375 * time.Millisecond},
		},
		{
			name:    "capped",
			backoff: Backoff{Base: time.Second, Factor: 3, Max: 5 * time.Second},
			want:    []time.Duration{time.Second, 3 * time.Second, 5 * time.Second, 5 * time.Second},
		},
		{
			name:    "constant when factor below one",
			backoff: Backoff{Base: time.Second, Factor: 0.5},
			want:    []time.Duration{time.Second, time.Second, time.Second},
		},
		{
			name:    "zero base",
			backoff: Backoff{Factor: 2},
			want:    []time.Duration{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				if got := tt.backoff.Delay(i + 1); got != want {
					t.Errorf("Delay(%d) = %v, want %v", i+1, got, want)
				}
			}
		})
	}
}

func TestBackoff_NonDecreasing(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Factor: 2, Max: 10 * time.Second}
	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		d := b.Delay(n)
		if d < prev {
			t.Fatalf("Delay(%d) = %v < Delay(%d) = %v", n, d, n-1, prev)
		}
		prev = d
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := Backoff{Base: time.Second, Factor: 2, Jitter: 0.2}
	for n := 1; n <= 4; n++ {
		nominal := float64(time.Second) * math.Pow(2, float64(n-1))
		for i := 0; i < 50; i++ {
			d := float64(b.Delay(n))
			if d < nominal*0.8 || d > nominal*1.2 {
				t.Fatalf("Delay(%d) = %v outside ±20%% of %v", n, time.Duration(d), time.Duration(nominal))
			}
		}
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() returned unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() on cancelled context = %v, want context.Canceled", err)
	}
}
