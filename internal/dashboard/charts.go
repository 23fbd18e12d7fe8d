package dashboard

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

// classificationBar builds the bar chart of lead counts per classification.
func classificationBar(leads []models.Lead) *charts.Bar {
	order, counts := CountBy(leads, ByClassificacao)

	items := make([]opts.BarData, 0, len(order))
	for _, name := range order {
		items = append(items, opts.BarData{Value: counts[name]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Leads por Classificação"}))
	bar.SetXAxis(order).AddSeries("Leads", items)
	return bar
}

// interestPie builds the pie chart of lead proportions per interest.
func interestPie(leads []models.Lead) *charts.Pie {
	order, counts := CountBy(leads, ByInteresse)

	items := make([]opts.PieData, 0, len(order))
	for _, name := range order {
		items = append(items, opts.PieData{Name: name, Value: counts[name]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Proporção de Leads por Interesse"}))
	pie.AddSeries("Interesses", items)
	return pie
}

// renderCharts writes the chart page for the filtered subset.
func renderCharts(w io.Writer, leads []models.Lead) error {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(classificationBar(leads), interestPie(leads))
	return page.Render(w)
}
