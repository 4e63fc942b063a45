package metrics

import (
	"errors"
	"fmt"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/starford/graphlens/internal/apperr"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("filter: %w", apperr.ErrInvalidInput), "invalid"},
		{fmt.Errorf("entity %q: %w", "x", apperr.ErrNotFound), "not_found"},
		{errors.New("disk on fire"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func counterValue(t *testing.T, op, outcome string) float64 {
	t.Helper()
	var m dto.Metric
	if err := QueriesTotal.WithLabelValues(op, outcome).Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveQuery(t *testing.T) {
	before := counterValue(t, "test_op", "not_found")
	ObserveQuery("test_op", apperr.ErrNotFound)
	if got := counterValue(t, "test_op", "not_found"); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}
