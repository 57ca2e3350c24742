package store

import (
	"context"
	"fmt"
)

// WriteCompilation appends a record to the log. Uses ON CONFLICT(id) DO
// NOTHING, so writing the same run twice keeps the first record.
func (s *Store) WriteCompilation(ctx context.Context, c Compilation) error {
	dims, err := marshalDims(c.Dims)
	if err != nil {
		return fmt.Errorf("write compilation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO compilations
		(id, program, problem_hash, problem, dims, cone_hash, cone, n, m, p, status, error, format_version, compiler_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.Program,
		c.ProblemHash,
		c.Problem,
		dims,
		c.ConeHash,
		c.Cone,
		c.N,
		c.M,
		c.P,
		c.Status,
		c.Error,
		c.FormatVersion,
		c.CompilerVersion,
	)
	if err != nil {
		return fmt.Errorf("write compilation: %w", err)
	}

	return nil
}
