package store

import (
	"context"
	"errors"
	"testing"
)

func TestWriteCompilation_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := createTestCompilation(t, "run-1", "sum_lp", 3)

	if err := s.WriteCompilation(ctx, c); err != nil {
		t.Fatalf("WriteCompilation() failed: %v", err)
	}

	got, err := s.ReadCompilation(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadCompilation() failed: %v", err)
	}
	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
	if got.Program != "sum_lp" || got.Status != StatusOK {
		t.Errorf("got %s/%s, want sum_lp/ok", got.Program, got.Status)
	}
	if got.ProblemHash != c.ProblemHash || got.ConeHash != c.ConeHash {
		t.Error("hashes did not round-trip")
	}
	if got.Problem != c.Problem || got.Cone != c.Cone {
		t.Error("documents did not round-trip")
	}
	if got.Dims["n"] != 3 || len(got.Dims) != 1 {
		t.Errorf("Dims = %v, want map[n:3]", got.Dims)
	}
	if got.N != 3 || got.M != 3 || got.P != 0 {
		t.Errorf("sizes = (%d, %d, %d), want (3, 3, 0)", got.N, got.M, got.P)
	}
}

func TestWriteCompilation_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := createTestCompilation(t, "run-1", "sum_lp", 3)

	if err := s.WriteCompilation(ctx, c); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	c.Fail(errors.New("later failure"))
	if err := s.WriteCompilation(ctx, c); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM compilations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	got, err := s.ReadCompilation(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusOK {
		t.Errorf("Status = %s, first write should win", got.Status)
	}
}

func TestWriteCompilation_Failure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c, err := NewCompilation("run-err", createTestProgram(t, "sum_lp"), map[string]int{"n": 2})
	if err != nil {
		t.Fatal(err)
	}
	c.Fail(errors.New("unknown parameter c"))
	if err := s.WriteCompilation(ctx, c); err != nil {
		t.Fatalf("WriteCompilation() failed: %v", err)
	}

	got, err := s.ReadCompilation(ctx, "run-err")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusError || got.Error != "unknown parameter c" {
		t.Errorf("got %s %q", got.Status, got.Error)
	}
	if got.ConeHash != "" || got.Cone != "" {
		t.Error("failed run should carry no cone data")
	}
}

func TestWriteCompilation_RejectsBadStatus(t *testing.T) {
	s := createTestStore(t)
	c := createTestCompilation(t, "run-1", "sum_lp", 2)
	c.Status = "pending"

	if err := s.WriteCompilation(context.Background(), c); err == nil {
		t.Error("expected CHECK constraint failure")
	}
}
