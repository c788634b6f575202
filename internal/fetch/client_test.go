package fetch

import (
	"testing"

	"github.com/yourorg/bridge-fee-tracker/internal/config"
)

func TestNewSources(t *testing.T) {
	sources := NewSources(config.Load())
	if len(sources) != 2 {
		t.Fatalf("NewSources returned %d sources, want 2", len(sources))
	}

	want := []string{"across", "hop"}
	for i, s := range sources {
		if s.Protocol() != want[i] {
			t.Errorf("sources[%d].Protocol() = %q, want %q", i, s.Protocol(), want[i])
		}
	}
}

func TestRouteErrorMessage(t *testing.T) {
	err := &RouteError{Protocol: "hop", Reason: "hop is not deployed on zksync"}
	want := "hop cannot serve this route: hop is not deployed on zksync"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
