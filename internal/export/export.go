package export

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"metals-dashboard/internal/service"
)

// Point is one dated value.
type Point struct {
	Date  time.Time
	Value decimal.Decimal
}

// Series is a named line of points, oldest first. Secondary series are
// drawn against the right-hand axis.
type Series struct {
	Name      string
	Points    []Point
	Secondary bool
}

// FromSeries converts a single-symbol trend.
func FromSeries(name string, points []service.SeriesPoint) Series {
	out := Series{Name: name, Points: make([]Point, len(points))}
	for i, p := range points {
		out.Points[i] = Point{Date: p.Date, Value: p.Close}
	}
	return out
}

// FromTrend splits the dashboard comparison into silver and gold series,
// gold on the secondary axis since it trades an order of magnitude higher.
func FromTrend(points []service.TrendPoint) []Series {
	silver := Series{Name: "Silver Price", Points: make([]Point, len(points))}
	gold := Series{Name: "Gold Price", Points: make([]Point, len(points)), Secondary: true}
	for i, p := range points {
		silver.Points[i] = Point{Date: p.Date, Value: p.Silver}
		gold.Points[i] = Point{Date: p.Date, Value: p.Gold}
	}
	return []Series{silver, gold}
}

// Downsample keeps at most max points, evenly spaced, always including the
// first and last.
func Downsample(points []Point, max int) []Point {
	if max <= 0 || len(points) <= max {
		return points
	}
	if max == 1 {
		return points[len(points)-1:]
	}

	result := make([]Point, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

// DownsampleAll applies Downsample to every series.
func DownsampleAll(series []Series, max int) []Series {
	out := make([]Series, len(series))
	for i, s := range series {
		s.Points = Downsample(s.Points, max)
		out[i] = s
	}
	return out
}

// WriteCSV writes one row per date with a column per series. Cells for
// dates a series lacks are left empty.
func WriteCSV(w io.Writer, series []Series) error {
	writer := csv.NewWriter(w)

	header := []string{"date"}
	for _, s := range series {
		header = append(header, s.Name)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	dates := make(map[string]time.Time)
	cells := make([]map[string]string, len(series))
	for i, s := range series {
		cells[i] = make(map[string]string, len(s.Points))
		for _, p := range s.Points {
			key := p.Date.UTC().Format(time.RFC3339)
			dates[key] = p.Date
			cells[i][key] = p.Value.String()
		}
	}

	keys := make([]string, 0, len(dates))
	for k := range dates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return dates[keys[i]].Before(dates[keys[j]]) })

	for _, key := range keys {
		record := make([]string, 0, len(series)+1)
		record = append(record, dates[key].UTC().Format(time.DateOnly))
		for i := range series {
			record = append(record, cells[i][key])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WritePNG renders the series as a time chart.
func WritePNG(w io.Writer, title string, series []Series) error {
	if len(series) == 0 {
		return errors.New("no series to render")
	}

	var chartSeries []chart.Series
	primary := newBounds()
	secondary := newBounds()
	hasSecondary := false

	for _, s := range series {
		if len(s.Points) < 2 {
			return errors.New("at least two points are required to draw a chart")
		}
		x := make([]time.Time, len(s.Points))
		y := make([]float64, len(s.Points))
		for i, p := range s.Points {
			x[i] = p.Date
			y[i] = p.Value.InexactFloat64()
		}

		ts := chart.TimeSeries{Name: s.Name, XValues: x, YValues: y}
		if s.Secondary {
			ts.YAxis = chart.YAxisSecondary
			secondary.add(y)
			hasSecondary = true
		} else {
			primary.add(y)
		}
		chartSeries = append(chartSeries, ts)
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  title,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat(time.DateOnly),
		},
		YAxis: chart.YAxis{
			Name:           "USD",
			ValueFormatter: priceFormatter,
			Range:          primary.flatRange(),
		},
		Series: chartSeries,
	}
	if hasSecondary {
		graph.YAxisSecondary = chart.YAxis{
			Name:           "USD (secondary)",
			ValueFormatter: priceFormatter,
			Range:          secondary.flatRange(),
		}
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// WriteFile creates path (and its directory) and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

type bounds struct {
	min, max float64
	seen     bool
}

func newBounds() *bounds {
	return &bounds{}
}

func (b *bounds) add(values []float64) {
	for _, v := range values {
		if !b.seen || v < b.min {
			b.min = v
		}
		if !b.seen || v > b.max {
			b.max = v
		}
		b.seen = true
	}
}

// flatRange pads a constant series so the chart has a non-zero y range.
func (b *bounds) flatRange() chart.Range {
	if !b.seen || b.max != b.min {
		return nil
	}
	pad := math.Max(math.Abs(b.min)*0.01, 1)
	return &chart.ContinuousRange{Min: b.min - pad, Max: b.max + pad}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
