package diagweb

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// renderable is satisfied by every go-echarts chart type used here.
type renderable interface {
	Render(w ...io.Writer) error
}

// handleBlobCountChart renders blob count per cycle over the last 500
// rows as a line chart.
func (d *dashboard) handleBlobCountChart(w http.ResponseWriter, r *http.Request) {
	rows, err := d.db.Query(`
		SELECT capture_unix, blob_count FROM cycles
		ORDER BY cycle_id DESC LIMIT 500`)
	if err != nil {
		d.fmtErr(w, http.StatusInternalServerError, "query blob counts", err)
		return
	}
	defer rows.Close()

	var xs []string
	var ys []opts.LineData
	for rows.Next() {
		var captureUnix int64
		var blobCount int
		if err := rows.Scan(&captureUnix, &blobCount); err != nil {
			d.fmtErr(w, http.StatusInternalServerError, "scan blob count row", err)
			return
		}
		xs = append(xs, time.Unix(captureUnix, 0).UTC().Format("15:04:05"))
		ys = append(ys, opts.LineData{Value: blobCount})
	}
	reverse(xs)
	reverseLine(ys)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Blob Count", Subtitle: "most recent 500 cycles"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).AddSeries("blob count", ys)
	renderChart(w, line)
}

// handlePointingRMSChart renders pointing RMS (arcseconds) over the last
// 500 solved cycles.
func (d *dashboard) handlePointingRMSChart(w http.ResponseWriter, r *http.Request) {
	rows, err := d.db.Query(`
		SELECT capture_unix, sigma_as FROM cycles
		WHERE sigma_as > 0
		ORDER BY cycle_id DESC LIMIT 500`)
	if err != nil {
		d.fmtErr(w, http.StatusInternalServerError, "query pointing rms", err)
		return
	}
	defer rows.Close()

	var xs []string
	var ys []opts.LineData
	for rows.Next() {
		var captureUnix int64
		var sigmaAs float64
		if err := rows.Scan(&captureUnix, &sigmaAs); err != nil {
			d.fmtErr(w, http.StatusInternalServerError, "scan pointing rms row", err)
			return
		}
		xs = append(xs, time.Unix(captureUnix, 0).UTC().Format("15:04:05"))
		ys = append(ys, opts.LineData{Value: sigmaAs})
	}
	reverse(xs)
	reverseLine(ys)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Pointing RMS (arcsec)", Subtitle: "solved cycles only"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).AddSeries("sigma (as)", ys)
	renderChart(w, line)
}

// handleFocusSweepChart renders solve_ms and camera_ms per cycle as a bar
// chart over the most recent 200 cycles of any run, a quick read on
// whether solving or capture is slowing the cycle down.
func (d *dashboard) handleFocusSweepChart(w http.ResponseWriter, r *http.Request) {
	rows, err := d.db.Query(`
		SELECT capture_unix, solve_ms, camera_ms FROM cycles
		ORDER BY cycle_id DESC LIMIT 200`)
	if err != nil {
		d.fmtErr(w, http.StatusInternalServerError, "query cycle timing", err)
		return
	}
	defer rows.Close()

	var xs []string
	var solveMs, cameraMs []opts.BarData
	for rows.Next() {
		var captureUnix int64
		var solve, camera float64
		if err := rows.Scan(&captureUnix, &solve, &camera); err != nil {
			d.fmtErr(w, http.StatusInternalServerError, "scan cycle timing row", err)
			return
		}
		xs = append(xs, time.Unix(captureUnix, 0).UTC().Format("15:04:05"))
		solveMs = append(solveMs, opts.BarData{Value: solve})
		cameraMs = append(cameraMs, opts.BarData{Value: camera})
	}
	reverse(xs)
	reverseBar(solveMs)
	reverseBar(cameraMs)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cycle Timing (ms)", Subtitle: "most recent 200 cycles"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xs).
		AddSeries("solve_ms", solveMs).
		AddSeries("camera_ms", cameraMs)
	renderChart(w, bar)
}

func renderChart(w http.ResponseWriter, r renderable) {
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func reverse(xs []string) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func reverseLine(ys []opts.LineData) {
	for i, j := 0, len(ys)-1; i < j; i, j = i+1, j-1 {
		ys[i], ys[j] = ys[j], ys[i]
	}
}

func reverseBar(ys []opts.BarData) {
	for i, j := 0, len(ys)-1; i < j; i, j = i+1, j-1 {
		ys[i], ys[j] = ys[j], ys[i]
	}
}
