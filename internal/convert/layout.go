package convert

import (
	"regexp"
	"strings"

	"csv2ics/internal/model"
	"csv2ics/internal/rows"
)

// headerCellHints flag a header label in the first cell of a header-less file.
var headerCellHints = []string{"subject", "start", "дата"}

// dateShaped matches day.month.year and year-month-day, valid or not.
var dateShaped = regexp.MustCompile(`\d{1,4}[.\-/]\d{1,2}[.\-/]\d{1,4}`)

// layout is the per-file row strategy, chosen once.
type layout struct {
	normalizer rows.Normalizer
	mapping    *model.ColumnMapping
	// header is the index of the header record, -1 when absent.
	header int
}

// detectLayout inspects the first non-blank record. A header selects the
// mapped strategy; otherwise every record goes through the positional one.
func (c *Converter) detectLayout(records []rows.Record) (layout, error) {
	first := -1
	for i, r := range records {
		if r.Err != nil || !rows.Blank(r.Cells) {
			first = i
			break
		}
	}
	if first < 0 {
		return layout{normalizer: rows.Positional{}, header: -1}, nil
	}

	rec := records[first]
	if rec.Err != nil || !c.looksLikeHeader(rec.Cells) {
		return layout{
			normalizer: rows.Positional{HeaderCell: c.isHeaderCell, FirstLine: rec.Line},
			header:     -1,
		}, nil
	}

	header := make([]string, len(rec.Cells))
	for i, name := range rec.Cells {
		header[i] = strings.TrimSpace(name)
	}
	m, err := c.resolver.Resolve(header)
	if err != nil {
		return layout{}, err
	}
	return layout{
		normalizer: rows.Mapped{Mapping: m},
		mapping:    &m,
		header:     first,
	}, nil
}

// looksLikeHeader needs a label carrying a role hint and no cell shaped
// like a date. Subjects may contain role words ("Weekend", "Start of
// term"), and a data row keeps its date-shaped cells even when they fail
// to parse.
func (c *Converter) looksLikeHeader(cells model.RawRow) bool {
	hinted := false
	for _, cell := range cells {
		if dateShaped.MatchString(cell) {
			return false
		}
		if _, err := c.parser.Parse(cell); err == nil {
			return false
		}
		if c.resolver.Hinted(cell) || c.isHeaderCell(cell) {
			hinted = true
		}
	}
	return hinted
}

// isHeaderCell is the positional strategy's first-line check.
func (c *Converter) isHeaderCell(cell string) bool {
	lc := strings.ToLower(cell)
	for _, h := range headerCellHints {
		if strings.Contains(lc, h) {
			return true
		}
	}
	return false
}
