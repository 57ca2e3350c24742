package store

import (
	"context"
	"database/sql"
	"testing"
)

func TestListCompilations_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ListCompilations(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("ListCompilations() failed: %v", err)
	}
	if got == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestListCompilations_OrderAndFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, c := range []Compilation{
		createTestCompilation(t, "run-c", "alpha", 2),
		createTestCompilation(t, "run-a", "beta", 2),
		createTestCompilation(t, "run-b", "alpha", 4),
	} {
		if err := s.WriteCompilation(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListCompilations(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"run-c", "run-a", "run-b"}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("all[%d].ID = %s, want %s (seq order)", i, all[i].ID, id)
		}
	}

	alpha, err := s.ListCompilations(ctx, Filter{Program: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(alpha) != 2 || alpha[0].ID != "run-c" || alpha[1].ID != "run-b" {
		t.Errorf("program filter = %v", ids(alpha))
	}

	byHash, err := s.ListCompilations(ctx, Filter{ProblemHash: all[1].ProblemHash})
	if err != nil {
		t.Fatal(err)
	}
	if len(byHash) != 1 || byHash[0].ID != "run-a" {
		t.Errorf("hash filter = %v", ids(byHash))
	}

	last, err := s.ListCompilations(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[0].ID != "run-a" || last[1].ID != "run-b" {
		t.Errorf("limit = %v, want [run-a run-b]", ids(last))
	}
}

func TestReadCompilation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadCompilation(context.Background(), "missing")
	if err != sql.ErrNoRows {
		t.Errorf("ReadCompilation() error = %v, want sql.ErrNoRows", err)
	}
}

func TestLatest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestCompilation(t, "run-1", "sum_lp", 3)
	second := createTestCompilation(t, "run-2", "sum_lp", 3)
	other := createTestCompilation(t, "run-3", "sum_lp", 5)
	old := createTestCompilation(t, "run-4", "sum_lp", 3)
	old.FormatVersion = "0.9.0"
	for _, c := range []Compilation{first, second, other, old} {
		if err := s.WriteCompilation(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	got, ok, err := s.Latest(ctx, first.ProblemHash, map[string]int{"n": 3})
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.ID != "run-2" {
		t.Errorf("Latest() = %s %v, want run-2 (run-4 has an incompatible format)", got.ID, ok)
	}

	_, ok, err = s.Latest(ctx, first.ProblemHash, map[string]int{"n": 7})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Latest() found a record for unseen dims")
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"1.0.0", true},
		{"1.4.2", true},
		{"0.9.0", false},
		{"2.0.0", false},
		{"not-a-version", false},
	}
	for _, tt := range tests {
		c := Compilation{FormatVersion: tt.version}
		if got := c.Compatible(); got != tt.want {
			t.Errorf("Compatible(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func ids(cs []Compilation) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
