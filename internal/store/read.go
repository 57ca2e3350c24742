package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const compilationColumns = `seq, id, program, problem_hash, problem, dims, cone_hash, cone, n, m, p, status, error, format_version, compiler_version`

// Filter narrows ListCompilations. Zero fields match everything.
type Filter struct {
	Program     string
	ProblemHash string
	Limit       int
}

// ListCompilations returns matching records ordered by seq ascending.
// With a Limit, the most recent records are returned, still in seq order.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListCompilations(ctx context.Context, f Filter) ([]Compilation, error) {
	var (
		where []string
		args  []any
	)
	if f.Program != "" {
		where = append(where, "program = ?")
		args = append(args, f.Program)
	}
	if f.ProblemHash != "" {
		where = append(where, "problem_hash = ?")
		args = append(args, f.ProblemHash)
	}

	query := "SELECT " + compilationColumns + " FROM compilations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	out := []Compilation{}
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compilations: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ReadCompilation returns the record for run id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCompilation(ctx context.Context, id string) (Compilation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+compilationColumns+" FROM compilations WHERE id = ?", id)
	return scanCompilation(row)
}

// Latest returns the most recent successful, format-compatible record for
// problemHash compiled with the same dims. ok is false when none exists.
func (s *Store) Latest(ctx context.Context, problemHash string, dims map[string]int) (c Compilation, ok bool, err error) {
	key, err := marshalDims(dims)
	if err != nil {
		return Compilation{}, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+compilationColumns+` FROM compilations
		WHERE problem_hash = ? AND dims = ? AND status = ?
		ORDER BY seq DESC`, problemHash, key, StatusOK)
	if err != nil {
		return Compilation{}, false, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanCompilation(rows)
		if err != nil {
			return Compilation{}, false, err
		}
		if rec.Compatible() {
			return rec, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return Compilation{}, false, fmt.Errorf("iterate latest: %w", err)
	}
	return Compilation{}, false, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompilation(row scanner) (Compilation, error) {
	var (
		c    Compilation
		dims string
	)
	err := row.Scan(
		&c.Seq, &c.ID, &c.Program, &c.ProblemHash, &c.Problem, &dims,
		&c.ConeHash, &c.Cone, &c.N, &c.M, &c.P, &c.Status, &c.Error,
		&c.FormatVersion, &c.CompilerVersion,
	)
	if err == sql.ErrNoRows {
		return Compilation{}, err
	}
	if err != nil {
		return Compilation{}, fmt.Errorf("scan compilation: %w", err)
	}
	c.Dims, err = unmarshalDims(dims)
	if err != nil {
		return Compilation{}, err
	}
	return c, nil
}
