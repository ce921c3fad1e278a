package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// WriteCSV validates t and writes it to path in one atomic step: the rows go
// to a temporary file in the same directory which is then renamed over path.
// The directory is created if absent.
func WriteCSV(path string, t domain.Table) error {
	if err := Validate(t); err != nil {
		return err
	}
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Header())
	for _, r := range t.Rows {
		rec := periodFields(t.PeriodColumns, r.Period)
		for _, v := range r.Values {
			rec = append(rec, FormatFloat(v))
		}
		records = append(records, rec)
	}
	return WriteRecords(path, records)
}

// WriteRecords atomically writes raw CSV records to path.
func WriteRecords(path string, records [][]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()           //nolint:errcheck // already failing
			os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// ReadCSV loads a table written by WriteCSV. The header must start with
// periodColumns.
func ReadCSV(path string, periodColumns ...string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Table{}, &domain.InputNotFoundError{Path: path}
		}
		return domain.Table{}, &domain.FormatError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := decode(f, periodColumns)
	if err != nil {
		return domain.Table{}, &domain.FormatError{Path: path, Err: err}
	}
	t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return t, nil
}

func decode(r io.Reader, periodColumns []string) (domain.Table, error) {
	if err := checkPeriodColumns(periodColumns); err != nil {
		return domain.Table{}, err
	}
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return domain.Table{}, errors.New("missing header row")
	}

	header := rows[0]
	np := len(periodColumns)
	if len(header) < np {
		return domain.Table{}, fmt.Errorf("header %v lacks period columns %v", header, periodColumns)
	}
	for i, c := range periodColumns {
		if header[i] != c {
			return domain.Table{}, fmt.Errorf("header column %d is %q, want %q", i, header[i], c)
		}
	}

	t := domain.Table{
		PeriodColumns: append([]string(nil), periodColumns...),
		Columns:       append([]string(nil), header[np:]...),
		Rows:          make([]domain.TableRow, 0, len(rows)-1),
	}
	for n, rec := range rows[1:] {
		p, err := parsePeriod(periodColumns, rec[:np])
		if err != nil {
			return domain.Table{}, fmt.Errorf("row %d: %w", n+1, err)
		}
		vals := make([]float64, len(rec)-np)
		for k, s := range rec[np:] {
			if vals[k], err = ParseFloat(s); err != nil {
				return domain.Table{}, fmt.Errorf("row %d column %q: %w", n+1, t.Columns[k], err)
			}
		}
		t.Rows = append(t.Rows, domain.TableRow{Period: p, Values: vals})
	}
	if err := Validate(t); err != nil {
		return domain.Table{}, err
	}
	return t, nil
}

func periodFields(cols []string, p domain.Period) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		switch c {
		case domain.ColumnYear:
			out = append(out, strconv.Itoa(p.Year))
		case domain.ColumnMonth:
			out = append(out, strconv.Itoa(int(p.Month)))
		}
	}
	return out
}

func parsePeriod(cols, fields []string) (domain.Period, error) {
	var p domain.Period
	for i, c := range cols {
		n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return domain.Period{}, fmt.Errorf("%s: %w", c, err)
		}
		switch c {
		case domain.ColumnYear:
			p.Year = n
		case domain.ColumnMonth:
			p.Month = time.Month(n)
		}
	}
	return p, nil
}

// FormatFloat renders v with the shortest representation that parses back to
// the same float64. NaN becomes an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat reverses FormatFloat.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
