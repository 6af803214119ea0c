package stage

import (
	"context"
	"errors"
	"io/fs"
	"math"

	"github.com/jmylchreest/ipoetl/internal/logger"
	"github.com/jmylchreest/ipoetl/pkg/columns"
	"github.com/jmylchreest/ipoetl/pkg/table"
)

// CleanTable runs the column parser of every column over t. Numeric
// columns come back as floats with NaN for unparseable cells; the rest stay
// text with "" for missing values.
func CleanTable(t *table.Table) *table.Table {
	cols := make([]table.Column, 0, t.Width())
	for _, c := range t.Columns() {
		p := columns.ParserFor(c.Name())
		raw := c.Texts()
		if p.IsNumeric() {
			nums := make([]float64, len(raw))
			for i, s := range raw {
				v, ok := p.Numeric(s)
				if !ok {
					v = math.NaN()
				}
				nums[i] = v
			}
			cols = append(cols, table.Floats(c.Name(), nums...))
			continue
		}
		text := make([]string, len(raw))
		for i, s := range raw {
			if v, ok := p.Text(s); ok {
				text[i] = v
			}
		}
		cols = append(cols, table.Strings(c.Name(), text...))
	}
	return table.MustNew(cols...)
}

// CleanStats counts the section files cleaned.
type CleanStats struct {
	Files int
	Rows  int
}

// Clean parses every raw section CSV into processed/csv/<segment>/.
// Sections that were never extracted are skipped.
func (p *Pipeline) Clean(ctx context.Context) (CleanStats, error) {
	ctx = logger.WithStage(ctx, "clean")
	var stats CleanStats
	for _, segment := range p.cfg.Segments {
		for _, section := range p.cfg.Sections {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			in := p.layout.RawSection(segment, section)
			t, err := table.ReadCSVFile(in)
			if errors.Is(err, fs.ErrNotExist) {
				logger.WarnContext(ctx, "section not extracted", "segment", segment, "section", section)
				continue
			}
			if err != nil {
				return stats, err
			}
			out := p.layout.CleanSection(segment, section)
			if err := CleanTable(t).WriteCSVFile(out); err != nil {
				return stats, err
			}
			stats.Files++
			stats.Rows += t.Len()
			logger.DebugContext(ctx, "section cleaned", "segment", segment, "section", section, "rows", t.Len())
		}
	}
	if stats.Files == 0 {
		return stats, ErrNoInput
	}
	logger.InfoContext(ctx, "clean complete", "files", stats.Files, "rows", stats.Rows)
	return stats, nil
}
