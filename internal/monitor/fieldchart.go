package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/httputil"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleFieldChart renders an HTML scatter plot of both pose tables,
// plus recent robot poses and offset targets when telemetry is
// recording. Debugging-only endpoint for eyeballing the tables without
// the driver station.
// Query params:
//
//	limit (optional, default 50) recent decisions to overlay
func (ws *WebServer) handleFieldChart(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	bluePoses := ws.engine.Tables().Blue().Poses()
	redPoses := ws.engine.Tables().Red().Poses()

	maxX, maxY := 0.0, 0.0
	grow := func(p field.Pose) {
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	toScatter := func(poses []field.Pose) []opts.ScatterData {
		data := make([]opts.ScatterData, 0, len(poses))
		for _, p := range poses {
			grow(p)
			data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
		}
		return data
	}

	bluePts := toScatter(bluePoses)
	redPts := toScatter(redPoses)

	var robotPts, targetPts []opts.ScatterData
	if ws.store != nil {
		events, err := ws.store.RecentMatches(limit)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("failed to load recent matches: %v", err))
			return
		}
		for _, ev := range events {
			grow(ev.Robot)
			grow(ev.Target)
			robotPts = append(robotPts, opts.ScatterData{Value: []interface{}{ev.Robot.X, ev.Robot.Y}})
			targetPts = append(targetPts, opts.ScatterData{Value: []interface{}{ev.Target.X, ev.Target.Y}})
		}
	}

	padX := maxX * 1.05
	if padX == 0 {
		padX = 1.0
	}
	padY := maxY * 1.05
	if padY == 0 {
		padY = 1.0
	}

	subtitle := fmt.Sprintf("revision=%s blue=%d red=%d decisions=%d",
		ws.tables.Revision, len(bluePts), len(redPts), len(robotPts))

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Field Pose Tables", Theme: "dark", Width: "900px", Height: "520px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Field Pose Tables", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: padX, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: padY, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("blue table", bluePts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#42a5f5"}))
	scatter.AddSeries("red table", redPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))
	if len(robotPts) > 0 {
		scatter.AddSeries("robot", robotPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
		scatter.AddSeries("target", targetPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#fde725"}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
