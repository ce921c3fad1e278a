// Command validate checks the integrity of the tables a run left in the
// output directory: headers, period keys, value ranges, agreement between the
// monthly and annual tables, and the shape of the analysis results.
//
// Usage:
//
//	go run ./cmd/validate -dir outputs
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/climate-data-etl/internal/aggregate"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/table"
)

// Plausible physical bounds for the regional series.
const (
	minCelsius = -60.0
	maxCelsius = 60.0
	// Averaging order differs between the tables, so sums drift slightly.
	consistencyTol = 1e-6
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	skipped bool
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "outputs", "directory holding the CSV tables of a run")
	flag.Parse()

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	fmt.Println("=== Climate Table Integrity Validation ===")
	fmt.Println()

	monthly, err := table.ReadCSV(filepath.Join(dir, table.NameMonthly+".csv"), domain.ColumnYear, domain.ColumnMonth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load monthly table: %v\n", err)
		return 1
	}
	annual, err := table.ReadCSV(filepath.Join(dir, table.NameAnnual+".csv"), domain.ColumnYear)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load annual table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateMonthly(monthly),
		validateAnnual(annual),
		validateConsistency(monthly, annual),
		validateClimatology(dir),
		validateTrends(dir, annual),
		validateCorrelations(dir, annual),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d monthly, %d annual\n", monthly.Len(), annual.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Period tables ──

var (
	monthlyColumns = []string{table.MonthlyTempMean, table.MonthlyPrecMean}
	annualColumns  = []string{table.AnnualTempMean, table.AnnualTempMax, table.AnnualPrecMean, table.AnnualPrecMax}
	tempColumns    = []string{table.MonthlyTempMean, table.AnnualTempMean, table.AnnualTempMax, table.TmaxMean, table.TmaxMin, table.TmaxMax}
)

func validateMonthly(t domain.Table) *phase {
	p := &phase{name: "Monthly table"}
	checkColumns(p, t, monthlyColumns)
	for _, r := range t.Rows {
		if r.Period.Month < 1 || r.Period.Month > 12 {
			p.errorf("row %s: month out of range", r.Period)
		}
	}
	checkRanges(p, t)
	return p
}

func validateAnnual(t domain.Table) *phase {
	p := &phase{name: "Annual table"}
	checkColumns(p, t, annualColumns)
	checkRanges(p, t)
	checkMaxAboveMean(p, t, table.AnnualTempMean, table.AnnualTempMax)
	checkMaxAboveMean(p, t, table.AnnualPrecMean, table.AnnualPrecMax)
	return p
}

// validateConsistency compares each complete year of the monthly table with
// the annual mean.
func validateConsistency(monthly, annual domain.Table) *phase {
	p := &phase{name: "Monthly/annual agreement"}
	pairs := [][2]string{
		{table.MonthlyTempMean, table.AnnualTempMean},
		{table.MonthlyPrecMean, table.AnnualPrecMean},
	}
	for _, pair := range pairs {
		mi, ai := monthly.ColumnIndex(pair[0]), annual.ColumnIndex(pair[1])
		if mi < 0 || ai < 0 {
			continue
		}
		byYear := make(map[int][]float64)
		for _, r := range monthly.Rows {
			byYear[r.Period.Year] = append(byYear[r.Period.Year], r.Values[mi])
		}
		for _, r := range annual.Rows {
			months, ok := byYear[r.Period.Year]
			if !ok {
				p.errorf("%d: present in the annual table only", r.Period.Year)
				continue
			}
			if len(months) != 12 || slices.ContainsFunc(months, math.IsNaN) || math.IsNaN(r.Values[ai]) {
				continue
			}
			if got := aggregate.Mean(months); !near(got, r.Values[ai]) {
				p.errorf("%d %s: mean of months %.6g, annual %.6g", r.Period.Year, pair[1], got, r.Values[ai])
			}
		}
	}
	return p
}

func validateClimatology(dir string) *phase {
	p := &phase{name: "Tmax climatology"}
	t, err := table.ReadCSV(filepath.Join(dir, table.NameClimatology+".csv"), domain.ColumnMonth)
	if err != nil {
		skipIfMissing(p, err)
		return p
	}
	checkColumns(p, t, []string{table.TmaxMean, table.TmaxMin, table.TmaxMax})
	lo, mid, hi := t.ColumnIndex(table.TmaxMin), t.ColumnIndex(table.TmaxMean), t.ColumnIndex(table.TmaxMax)
	if lo >= 0 && mid >= 0 && hi >= 0 {
		for _, r := range t.Rows {
			if r.Values[lo] > r.Values[mid] || r.Values[mid] > r.Values[hi] {
				p.errorf("month %d: expected min <= mean <= max, got %g, %g, %g", r.Period.Month, r.Values[lo], r.Values[mid], r.Values[hi])
			}
		}
	}
	checkRanges(p, t)
	return p
}

func checkColumns(p *phase, t domain.Table, want []string) {
	for _, c := range t.Columns {
		if !slices.Contains(want, c) {
			p.errorf("unexpected column %q", c)
		}
	}
	if len(t.Columns) == 0 {
		p.errorf("no value columns")
	}
}

func checkRanges(p *phase, t domain.Table) {
	for k, c := range t.Columns {
		temp := slices.Contains(tempColumns, c)
		valid := 0
		for _, r := range t.Rows {
			v := r.Values[k]
			if math.IsNaN(v) {
				continue
			}
			valid++
			switch {
			case math.IsInf(v, 0):
				p.errorf("%s %s: infinite value", r.Period, c)
			case temp && (v < minCelsius || v > maxCelsius):
				p.errorf("%s %s: %.4g °C outside [%g, %g]", r.Period, c, v, minCelsius, maxCelsius)
			case !temp && v < 0:
				p.errorf("%s %s: negative precipitation %.4g", r.Period, c, v)
			}
		}
		if valid == 0 {
			p.errorf("column %q has no values", c)
		}
	}
}

func checkMaxAboveMean(p *phase, t domain.Table, meanCol, maxCol string) {
	mi, xi := t.ColumnIndex(meanCol), t.ColumnIndex(maxCol)
	if mi < 0 || xi < 0 {
		return
	}
	for _, r := range t.Rows {
		if r.Values[xi] < r.Values[mi] {
			p.errorf("%s: %s %.6g below %s %.6g", r.Period, maxCol, r.Values[xi], meanCol, r.Values[mi])
		}
	}
}

// ── Analysis results ──

func validateTrends(dir string, annual domain.Table) *phase {
	p := &phase{name: "Trend results"}
	recs, err := readRecords(filepath.Join(dir, table.NameTrends+".csv"))
	if err != nil {
		skipIfMissing(p, err)
		return p
	}
	if !checkHeader(p, recs, table.TrendHeader) {
		return p
	}
	for i, rec := range recs[1:] {
		if annual.ColumnIndex(rec[0]) < 0 {
			p.errorf("row %d: %q is not an annual column", i+1, rec[0])
		}
		if pv, ok := parseCell(p, i+1, "p-value", rec[5]); ok && !math.IsNaN(pv) && (pv < 0 || pv > 1) {
			p.errorf("row %d: p-value %g outside [0, 1]", i+1, pv)
		}
		if r2, ok := parseCell(p, i+1, "R²", rec[4]); ok && !math.IsNaN(r2) && (r2 < 0 || r2 > 1+consistencyTol) {
			p.errorf("row %d: R² %g outside [0, 1]", i+1, r2)
		}
	}
	return p
}

func validateCorrelations(dir string, annual domain.Table) *phase {
	p := &phase{name: "Correlation results"}
	recs, err := readRecords(filepath.Join(dir, table.NameCorrelations+".csv"))
	if err != nil {
		skipIfMissing(p, err)
		return p
	}
	if !checkHeader(p, recs, table.CorrelationHeader) {
		return p
	}
	seen := make(map[[2]string]bool)
	for i, rec := range recs[1:] {
		pair := [2]string{rec[0], rec[1]}
		if seen[pair] {
			p.errorf("row %d: duplicate pair %q/%q", i+1, rec[0], rec[1])
		}
		seen[pair] = true
		for _, name := range pair {
			if annual.ColumnIndex(name) < 0 {
				p.errorf("row %d: %q is not an annual column", i+1, name)
			}
		}
		defined, err := strconv.ParseBool(rec[4])
		if err != nil {
			p.errorf("row %d: defined flag %q: %v", i+1, rec[4], err)
			continue
		}
		r, ok := parseCell(p, i+1, "coefficient", rec[2])
		switch {
		case !ok:
		case defined && (math.IsNaN(r) || r < -1-consistencyTol || r > 1+consistencyTol):
			p.errorf("row %d: coefficient %g outside [-1, 1]", i+1, r)
		case !defined && !math.IsNaN(r):
			p.errorf("row %d: undefined correlation carries a value %g", i+1, r)
		}
	}
	return p
}

func readRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}

func checkHeader(p *phase, recs [][]string, want []string) bool {
	if len(recs) == 0 || !slices.Equal(recs[0], want) {
		p.errorf("header mismatch: want %q", want)
		return false
	}
	return true
}

func parseCell(p *phase, row int, name, s string) (float64, bool) {
	v, err := table.ParseFloat(s)
	if err != nil {
		p.errorf("row %d: %s %q: %v", row, name, s, err)
		return 0, false
	}
	return v, true
}

// skipIfMissing marks optional outputs as skipped; any other failure is an
// error.
func skipIfMissing(p *phase, err error) {
	var notFound *domain.InputNotFoundError
	if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
		p.skipped = true
		return
	}
	p.errorf("%v", err)
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= consistencyTol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
