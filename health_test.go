package resolver

import (
	"reflect"
	"testing"
	"time"
)

func TestHealth_FailedEndpointsAreSkippedUntilExpiry(t *testing.T) {
	h := NewHealth(0, 0)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	h.now = func() time.Time { return now }

	cands := []string{"https://a.example/", "https://b.example/"}
	h.MarkFailed("test", "https://a.example")
	if got := h.Filter("test", cands); !reflect.DeepEqual(got, []string{"https://b.example/"}) {
		t.Fatalf("failed endpoint not dropped: %v", got)
	}
	// Other TLDs are unaffected.
	if got := h.Filter("other", cands); !reflect.DeepEqual(got, cands) {
		t.Fatalf("unrelated tld filtered: %v", got)
	}

	now = base.Add(31 * time.Minute)
	if got := h.Filter("test", cands); !reflect.DeepEqual(got, cands) {
		t.Fatalf("failure mark should have expired: %v", got)
	}
}

func TestHealth_WorkingFirstAndExpiry(t *testing.T) {
	h := NewHealth(6*time.Hour, 30*time.Minute)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	h.now = func() time.Time { return now }

	cands := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
	h.MarkWorking("test", "https://c.example/")
	h.MarkWorking("test", "https://b.example/")
	want := []string{"https://b.example/", "https://c.example/", "https://a.example/"}
	if got := h.Filter("test", cands); !reflect.DeepEqual(got, want) {
		t.Fatalf("working order:\n got %v\nwant %v", got, want)
	}

	// A failure demotes a working endpoint.
	h.MarkFailed("test", "https://b.example/")
	want = []string{"https://c.example/", "https://a.example/"}
	if got := h.Filter("test", cands); !reflect.DeepEqual(got, want) {
		t.Fatalf("after failure:\n got %v\nwant %v", got, want)
	}

	now = base.Add(7 * time.Hour)
	if got := h.Filter("test", cands); !reflect.DeepEqual(got, cands) {
		t.Fatalf("all marks should have expired: %v", got)
	}
}

func TestHealth_AllFailedFallsBackToCandidates(t *testing.T) {
	h := NewHealth(0, 0)
	cands := []string{"https://a.example/", "https://b.example/"}
	h.MarkFailed("test", cands[0])
	h.MarkFailed("test", cands[1])
	if got := h.Filter("test", cands); !reflect.DeepEqual(got, cands) {
		t.Fatalf("expected unfiltered list, got %v", got)
	}
	h.Clear()
	h.MarkWorking("test", cands[1])
	if got := h.Filter("test", cands); got[0] != cands[1] {
		t.Fatalf("clear then mark: %v", got)
	}
}
