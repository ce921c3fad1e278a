package table

import (
	"strconv"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// File stems of the analysis tables.
const (
	NameTrends       = "tendencias_anuais"
	NameCorrelations = "correlacoes_anuais"
)

// TrendHeader is the header of the trend table.
var TrendHeader = []string{"Variável", "Inclinação (/ano)", "Intercepto", "R", "R²", "Valor-p", "Erro Padrão", "N", "Significativo", "Tendência"}

// CorrelationHeader is the header of the correlation table.
var CorrelationHeader = []string{"Variável A", "Variável B", "Correlação", "N", "Definida"}

// TrendRecords renders trends as CSV records, header first.
func TrendRecords(trends []domain.TrendResult) [][]string {
	out := make([][]string, 0, len(trends)+1)
	out = append(out, TrendHeader)
	for _, r := range trends {
		out = append(out, []string{
			r.Variable,
			FormatFloat(r.Slope),
			FormatFloat(r.Intercept),
			FormatFloat(r.RValue),
			FormatFloat(r.RSquared),
			FormatFloat(r.PValue),
			FormatFloat(r.StdErr),
			strconv.Itoa(r.N),
			strconv.FormatBool(r.Significant),
			r.Direction(),
		})
	}
	return out
}

// CorrelationRecords renders correlations as CSV records, header first.
func CorrelationRecords(corrs []domain.CorrelationResult) [][]string {
	out := make([][]string, 0, len(corrs)+1)
	out = append(out, CorrelationHeader)
	for _, c := range corrs {
		out = append(out, []string{
			c.Left,
			c.Right,
			FormatFloat(c.Coefficient),
			strconv.Itoa(c.N),
			strconv.FormatBool(c.Defined),
		})
	}
	return out
}
