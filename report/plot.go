package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// 图片尺寸（英寸）与分辨率
const (
	plotWidth  = 8.0
	plotHeight = 6.0
	plotDPI    = 150
)

// points 组合坐标点，跳过非有限值
func points(x, y []float64) plotter.XYs {
	n := min(len(x), len(y))
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	return pts
}

// Plot 生成静态图
func (c Chart) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Legend.Top = true
	for i, l := range c.Lines {
		pts := points(c.X, l.Values)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("曲线 %s: %w", l.Name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(l.Name, line)
	}
	return p, nil
}

// WritePNG 将图表绘制为 PNG
func WritePNG(w io.Writer, c Chart) error {
	p, err := c.Plot()
	if err != nil {
		return err
	}
	canvas := vgimg.NewWith(
		vgimg.UseWH(vg.Length(plotWidth)*vg.Inch, vg.Length(plotHeight)*vg.Inch),
		vgimg.UseDPI(plotDPI),
	)
	p.Draw(draw.New(canvas))
	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(bw); err != nil {
		return fmt.Errorf("写出图片: %w", err)
	}
	return bw.Flush()
}

// SavePNG 将图表写入 PNG 文件
func SavePNG(path string, c Chart) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建图片文件: %w", err)
	}
	if err := WritePNG(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
