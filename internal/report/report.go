// Package report renders figures and PDF summaries from stored
// results: collapse curves with the selected peak, eigenvalue ladders,
// the benchmark validation chart and a per-specimen PDF digest.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/phpdave11/gofpdf"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/steelspec/bucklab/internal/extract"
	"github.com/steelspec/bucklab/internal/peak"
	"github.com/steelspec/bucklab/internal/store"
)

func ensureParent(path string) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		os.MkdirAll(dir, 0755)
	}
}

func xys(xs, ys []float64) plotter.XYs {
	n := len(ys)
	if len(xs) < n {
		n = len(xs)
	}
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}

// CurveFigure draws the load-deflection history with the selected peak
// marked and a dashed reference at the peak level.
func CurveFigure(times, lpf []float64, dec peak.Decision, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Arc parameter"
	p.Y.Label.Text = "Load proportionality factor"

	curve, err := plotter.NewLine(xys(times, lpf))
	if err != nil {
		return err
	}
	curve.LineStyle.Width = vg.Points(1.5)
	curve.LineStyle.Color = color.RGBA{R: 0, G: 90, B: 181, A: 255}
	p.Add(curve)

	if dec.Index >= 0 && dec.Kind != peak.PeakNone {
		mark, err := plotter.NewScatter(plotter.XYs{{X: dec.Time, Y: dec.LPF}})
		if err != nil {
			return err
		}
		mark.GlyphStyle.Color = color.RGBA{R: 220, G: 30, B: 30, A: 255}
		mark.GlyphStyle.Radius = vg.Points(5)
		mark.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(mark)

		if len(times) > 0 {
			level, err := plotter.NewLine(plotter.XYs{
				{X: times[0], Y: dec.LPF},
				{X: times[len(times)-1], Y: dec.LPF},
			})
			if err != nil {
				return err
			}
			level.LineStyle.Color = color.Gray{Y: 128}
			level.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
			p.Add(level)
		}

		label, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: dec.Time, Y: dec.LPF}},
			Labels: []string{fmt.Sprintf("%s @ %.4g", dec.Kind, dec.LPF)},
		})
		if err != nil {
			return err
		}
		p.Add(label)
	}

	ensureParent(path)
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// EigenFigure draws the eigenvalue ladder over the mode numbers.
func EigenFigure(modes []extract.Mode, title, path string) error {
	pts := make(plotter.XYs, len(modes))
	for i, m := range modes {
		pts[i] = plotter.XY{X: float64(m.Number), Y: m.Eigenvalue}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Mode"
	p.Y.Label.Text = "Eigenvalue"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Color = color.Gray{Y: 100}
	p.Add(line)

	dots, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	dots.GlyphStyle.Color = color.RGBA{R: 0, G: 90, B: 181, A: 255}
	dots.GlyphStyle.Radius = vg.Points(4)
	dots.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(dots)

	ensureParent(path)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// Benchmark girders: measured peak loads against the model's, in kN.
var validationPoints = []struct {
	name string
	test float64
	fe   float64
}{
	{"G1", 685.4, 703.87},
	{"G2", 479.1, 513.21},
	{"G3", 598.5, 604.67},
	{"G4", 693.2, 697.70},
}

// ValidationFigure draws the benchmark comparison: model versus test
// peaks with the parity line and a dashed ±10% band.
func ValidationFigure(path string) error {
	p := plot.New()
	p.Title.Text = "Peak load validation"
	p.X.Label.Text = "Test peak load (kN)"
	p.Y.Label.Text = "Model peak load (kN)"

	lo, hi := 400.0, 800.0
	parity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return err
	}
	parity.LineStyle.Color = color.Gray{Y: 80}
	p.Add(parity)

	for _, f := range []float64{0.9, 1.1} {
		band, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo * f}, {X: hi, Y: hi * f}})
		if err != nil {
			return err
		}
		band.LineStyle.Color = color.Gray{Y: 160}
		band.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(band)
	}

	pts := make(plotter.XYs, len(validationPoints))
	labels := make([]string, len(validationPoints))
	for i, v := range validationPoints {
		pts[i] = plotter.XY{X: v.test, Y: v.fe}
		labels[i] = v.name
	}
	dots, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	dots.GlyphStyle.Color = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	dots.GlyphStyle.Radius = vg.Points(4)
	dots.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(dots)

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return err
	}
	p.Add(names)

	ensureParent(path)
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// PDF renders one page per specimen summary.
func PDF(sums []store.Summary, path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	for _, sum := range sums {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.Cell(0, 10, fmt.Sprintf("Specimen %s", sum.Specimen))
		pdf.Ln(12)
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", sum.Generated.Format("2006-01-02 15:04:05")))
		pdf.Ln(8)

		if p := sum.Params; p.SegmentCount > 0 {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.Cell(0, 8, "Geometry and material")
			pdf.Ln(8)
			pdf.SetFont("Helvetica", "", 10)
			pdf.Cell(0, 5, fmt.Sprintf("Web %g x %g x %g mm, flange %g x %g mm, %d segments",
				p.Length, p.SegmentHeight*float64(p.SegmentCount), p.WebThickness,
				p.FlangeWidth, p.FlangeThickness, p.SegmentCount))
			pdf.Ln(5)
			pdf.Cell(0, 5, fmt.Sprintf("Web fy/fu %g/%g MPa, flange fy/fu %g/%g MPa",
				p.FyWeb, p.FuWeb, p.FyFlange, p.FuFlange))
			pdf.Ln(5)
			pdf.Cell(0, 5, fmt.Sprintf("Imperfection: mode %d, amplitude %g mm", p.ImperfMode, p.ImperfAmp))
			pdf.Ln(10)
		}

		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(60, 6, "Load case")
		pdf.Cell(30, 6, "Max disp")
		pdf.Cell(35, 6, "Max force")
		pdf.Cell(30, 6, "Max LPF")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		for _, c := range sum.Cases {
			pdf.Cell(60, 6, c.CaseID)
			switch c.Status {
			case store.StatusCompleted:
				pdf.Cell(30, 6, fmt.Sprintf("%.4f", c.MaxDisp))
				pdf.Cell(35, 6, fmt.Sprintf("%.2f", c.MaxForce))
				pdf.Cell(30, 6, fmt.Sprintf("%.4f", c.MaxLPF))
			case store.StatusSkipped:
				pdf.Cell(95, 6, "SKIPPED")
			default:
				pdf.Cell(95, 6, fmt.Sprintf("FAILED (%s: %s)", c.Phase, c.Cause))
			}
			pdf.Ln(6)
		}
	}
	ensureParent(path)
	return pdf.OutputFileAndClose(path)
}
