package dcgan

import (
	"encoding/gob"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// AppendSummary Appends accuracy pair as 'real,fake;' to provided file. File is created if needed and never truncated.
func AppendSummary(fname string, accReal, accFake float64) error {
	f, err := os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "Can't open summary file")
	}
	_, err = fmt.Fprintf(f, "%s,%s;", strconv.FormatFloat(accReal, 'f', -1, 64), strconv.FormatFloat(accFake, 'f', -1, 64))
	if err != nil {
		f.Close()
		return errors.Wrap(err, "Can't write summary")
	}
	return f.Close()
}

// SampleImage Converts i-th image of tensor with shape (N, Channels, Height, Width) and values in [-1; 1] to image.Image
func SampleImage(samples *tensor.Dense, i int) (image.Image, error) {
	shp := samples.Shape()
	if len(shp) != 4 {
		return nil, fmt.Errorf("Samples must have 4 dimensions, but got %d", len(shp))
	}
	n, channels, height, width := shp[0], shp[1], shp[2], shp[3]
	if i < 0 || i >= n {
		return nil, fmt.Errorf("Sample index %d is out of range [0;%d)", i, n)
	}
	data, ok := samples.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("Samples hold %T, but []float64 expected", samples.Data())
	}
	plane := height * width
	offset := i * channels * plane
	switch channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, width, height))
		for p := 0; p < plane; p++ {
			img.SetGray(p%width, p/width, color.Gray{Y: toByte(data[offset+p])})
		}
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for p := 0; p < plane; p++ {
			img.SetRGBA(p%width, p/width, color.RGBA{
				R: toByte(data[offset+p]),
				G: toByte(data[offset+plane+p]),
				B: toByte(data[offset+2*plane+p]),
				A: 255,
			})
		}
		return img, nil
	default:
		return nil, fmt.Errorf("Only 1 or 3 channels are supported, but got %d", channels)
	}
}

// scale from [-1,1] to [0,255]
func toByte(v float64) uint8 {
	scaled := (v + 1) / 2 * 255
	if math.IsNaN(scaled) || scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return uint8(math.Round(scaled))
}

// SaveImageGrid Renders first n*n samples as grid of n rows and n columns into PNG file
func SaveImageGrid(samples *tensor.Dense, n int, fname string) error {
	if n < 1 {
		return fmt.Errorf("Grid size should be positive, but got %d", n)
	}
	if samples.Shape()[0] < n*n {
		return fmt.Errorf("Grid %dx%d needs %d samples, but got %d", n, n, n*n, samples.Shape()[0])
	}
	plots := make([][]*plot.Plot, n)
	for row := 0; row < n; row++ {
		plots[row] = make([]*plot.Plot, n)
		for col := 0; col < n; col++ {
			img, err := SampleImage(samples, row*n+col)
			if err != nil {
				return errors.Wrap(err, "Can't convert sample to image")
			}
			bounds := img.Bounds()
			p := plot.New()
			p.HideAxes()
			p.Add(plotter.NewImage(img, 0, 0, float64(bounds.Dx()), float64(bounds.Dy())))
			plots[row][col] = p
		}
	}
	side := vg.Length(n) * vg.Inch
	canvas := vgimg.New(side, side)
	dc := draw.New(canvas)
	tiles := draw.Tiles{
		Rows: n,
		Cols: n,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			plots[row][col].Draw(canvases[row][col])
		}
	}
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create image file")
	}
	if _, err = (vgimg.PngCanvas{Canvas: canvas}).WriteTo(f); err != nil {
		f.Close()
		return errors.Wrap(err, "Can't encode PNG")
	}
	return f.Close()
}

// LossHistory Per-batch losses: discriminator on real samples, discriminator on fake samples and generator
type LossHistory struct {
	D1 []float64
	D2 []float64
	G  []float64
}

// Add Appends losses of single batch
func (h *LossHistory) Add(d1, d2, g float64) {
	h.D1 = append(h.D1, d1)
	h.D2 = append(h.D2, d2)
	h.G = append(h.G, g)
}

// Len Returns number of recorded batches
func (h *LossHistory) Len() int {
	return len(h.G)
}

// PlotLosses Plot chart for loss history. Non-finite values are skipped.
func PlotLosses(h *LossHistory, fname string) error {
	if h.Len() == 0 {
		return fmt.Errorf("Loss history is empty")
	}
	p := plot.New()
	p.Title.Text = "Losses"
	p.X.Label.Text = "Batch"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())
	series := []struct {
		name   string
		values []float64
	}{
		{"d1 (real)", h.D1},
		{"d2 (fake)", h.D2},
		{"g", h.G},
	}
	lines := make([]interface{}, 0, 2*len(series))
	for _, s := range series {
		xys := finiteXYs(s.values)
		if len(xys) == 0 {
			continue
		}
		lines = append(lines, s.name, xys)
	}
	if len(lines) == 0 {
		return fmt.Errorf("There are no finite losses to plot")
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return errors.Wrap(err, "Can't add lines")
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

func finiteXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i + 1), Y: v})
	}
	return xys
}

type weightsFile struct {
	Names  []string
	Values []*tensor.Dense
}

// SaveWeights Serializes values of provided nodes (in gob format) with their names
func SaveWeights(nodes gorgonia.Nodes, fname string) error {
	wf := weightsFile{
		Names:  make([]string, len(nodes)),
		Values: make([]*tensor.Dense, len(nodes)),
	}
	for i, n := range nodes {
		dense, ok := n.Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("Node '%s' holds %T, but *tensor.Dense expected", n.Name(), n.Value())
		}
		wf.Names[i] = n.Name()
		wf.Values[i] = dense
	}
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create weights file")
	}
	if err = gob.NewEncoder(f).Encode(wf); err != nil {
		f.Close()
		return errors.Wrap(err, "Can't encode weights")
	}
	return f.Close()
}

// LoadWeights Reads file created by SaveWeights and copies values into nodes with the same names
func LoadWeights(nodes gorgonia.Nodes, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return errors.Wrap(err, "Can't open weights file")
	}
	defer f.Close()
	var wf weightsFile
	if err = gob.NewDecoder(f).Decode(&wf); err != nil {
		return errors.Wrap(err, "Can't decode weights")
	}
	if len(wf.Names) != len(wf.Values) {
		return fmt.Errorf("Weights file has %d names and %d values", len(wf.Names), len(wf.Values))
	}
	byName := make(map[string]*tensor.Dense, len(wf.Names))
	for i, name := range wf.Names {
		byName[name] = wf.Values[i]
	}
	for _, n := range nodes {
		loaded, ok := byName[n.Name()]
		if !ok {
			return fmt.Errorf("There are no weights for node '%s'", n.Name())
		}
		if !loaded.Shape().Eq(n.Shape()) {
			return fmt.Errorf("Node '%s' has shape %v, but loaded weights have %v", n.Name(), n.Shape(), loaded.Shape())
		}
		dst, ok := n.Value().Data().([]float64)
		if !ok {
			return fmt.Errorf("Node '%s' does not hold []float64", n.Name())
		}
		src, ok := loaded.Data().([]float64)
		if !ok {
			return fmt.Errorf("Weights for node '%s' are not []float64", n.Name())
		}
		copy(dst, src)
	}
	return nil
}
