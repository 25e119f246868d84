package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	gotypes "github.com/go-echarts/go-echarts/v2/types"
)

// Line 一条曲线
type Line struct {
	Name   string
	Values []float64
}

// Chart 共用横轴的一组曲线
type Chart struct {
	Title    string
	Subtitle string
	XLabel   string
	X        []float64
	Lines    []Line
}

// line 生成网页折线图
func (c Chart) line() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: gotypes.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Title,
			Subtitle: c.Subtitle,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        c.XLabel,
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	line.SetXAxis(c.X)
	for _, l := range c.Lines {
		items := make([]opts.LineData, len(l.Values))
		for i, v := range l.Values {
			// 缺失值以 "-" 表示，图上断开
			if math.IsNaN(v) || math.IsInf(v, 0) {
				items[i].Value = "-"
			} else {
				items[i].Value = v
			}
		}
		line.AddSeries(l.Name, items)
	}
	return line
}

// RenderHTML 将图表渲染为单个网页
func RenderHTML(w io.Writer, list ...Chart) error {
	page := components.NewPage()
	page.PageTitle = "DSC 动力学分析"
	for _, c := range list {
		page.AddCharts(c.line())
	}
	return page.Render(w)
}

// SaveHTML 将图表写入网页文件
func SaveHTML(path string, list ...Chart) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建网页文件: %w", err)
	}
	if err := RenderHTML(f, list...); err != nil {
		f.Close()
		return fmt.Errorf("渲染网页 %s: %w", path, err)
	}
	return f.Close()
}
