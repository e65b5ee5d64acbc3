package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"spatools/api/models/indexes"
)

const (
	genotypesTable = "genotypes"
	peaksTable     = "peaks"

	// rows per multi-row INSERT
	insertChunkSize = 2000
)

var (
	genotypeColumns = []string{"sample_code", "batch", "locus_code", "refseq", "position",
		"depth_a", "depth_c", "depth_g", "depth_t", "call", "quality", "filename", "created_time"}
	peakColumns = []string{"sample_id", "assay_id", "marker_id", "allele_id", "value",
		"size", "height", "type", "batch", "filename", "created_time"}
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store mirrors called genotypes and ingested peaks into ClickHouse.
type Store struct {
	db       execer
	database string
}

func NewStore(c *Client) *Store {
	return &Store{db: c.db, database: c.database}
}

func (s *Store) Name() string { return "clickhouse" }

func (s *Store) WriteGenotypes(ctx context.Context, genotypes []indexes.Genotype) error {
	return writeChunked(ctx, s.db, s.qualified(genotypesTable), genotypeColumns, genotypes,
		func(g indexes.Genotype) []any {
			return []any{g.SampleCode, g.Batch, g.LocusCode, g.RefSeq, int64(g.Position),
				int64(g.Depths.A), int64(g.Depths.C), int64(g.Depths.G), int64(g.Depths.T),
				string(g.Call), g.Quality, g.Filename, g.CreatedTime}
		})
}

func (s *Store) WritePeaks(ctx context.Context, peaks []indexes.Peak) error {
	return writeChunked(ctx, s.db, s.qualified(peaksTable), peakColumns, peaks,
		func(p indexes.Peak) []any {
			return []any{p.SampleId, p.AssayId, p.MarkerId, p.AlleleId, int64(p.Value),
				p.Size, p.Height, string(p.Type), p.Batch, p.Filename, p.CreatedTime}
		})
}

func (s *Store) qualified(table string) string {
	return s.database + "." + table
}

func writeChunked[T any](ctx context.Context, db execer, table string, columns []string, rows []T, args func(T) []any) error {
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))

		values := make([]any, 0, (end-start)*len(columns))
		for _, row := range rows[start:end] {
			values = append(values, args(row)...)
		}
		if _, err := db.ExecContext(ctx, insertStatement(table, columns, end-start), values...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

func insertStatement(table string, columns []string, rows int) string {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	tuples := make([]string, rows)
	for i := range tuples {
		tuples[i] = placeholder
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ", "), strings.Join(tuples, ","))
}
