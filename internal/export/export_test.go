package export

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metals-dashboard/internal/service"
)

var start = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func points(values ...int64) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{Date: start.AddDate(0, 0, i), Value: decimal.NewFromInt(v)}
	}
	return out
}

func TestDownsample(t *testing.T) {
	pts := points(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	assert.Len(t, Downsample(pts, 0), 10)
	assert.Len(t, Downsample(pts, 20), 10)

	got := Downsample(pts, 4)
	require.Len(t, got, 4)
	assert.Equal(t, pts[0], got[0])
	assert.Equal(t, pts[9], got[3])

	assert.Equal(t, []Point{pts[9]}, Downsample(pts, 1))
}

func TestWriteCSVAlignsDates(t *testing.T) {
	silver := Series{Name: "SLV", Points: points(22, 23, 24)}
	gold := Series{Name: "GLD", Points: points(185, 186)}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Series{silver, gold}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,SLV,GLD", lines[0])
	assert.Equal(t, "2026-01-05,22,185", lines[1])
	assert.Equal(t, "2026-01-07,24,", lines[3])
}

func TestWritePNG(t *testing.T) {
	trend := []service.TrendPoint{
		{Date: start, Silver: decimal.NewFromInt(22), Gold: decimal.NewFromInt(185)},
		{Date: start.AddDate(0, 0, 1), Silver: decimal.NewFromInt(23), Gold: decimal.NewFromInt(187)},
		{Date: start.AddDate(0, 0, 2), Silver: decimal.NewFromInt(22), Gold: decimal.NewFromInt(186)},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, "30-Day Trend Comparison", FromTrend(trend)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWritePNGFlatSeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, "", []Series{{Name: "SLV", Points: points(28, 28, 28)}}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWritePNGRejectsShortSeries(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePNG(&buf, "", nil))
	assert.Error(t, WritePNG(&buf, "", []Series{{Name: "SLV", Points: points(28)}}))
}

func TestFromSeriesAndWriteFile(t *testing.T) {
	s := FromSeries("SLV", []service.SeriesPoint{
		{Date: start, Close: decimal.NewFromInt(22)},
		{Date: start.AddDate(0, 0, 1), Close: decimal.NewFromInt(23)},
	})
	require.Len(t, s.Points, 2)
	assert.False(t, s.Secondary)

	path := filepath.Join(t.TempDir(), "nested", "trend.csv")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return WriteCSV(w, []Series{s})
	}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2026-01-06,23")
}
