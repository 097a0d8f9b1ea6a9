package dcgan

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// cifarRecordBytes Builds single CIFAR-10 record where every channel is filled with its own value
func cifarRecordBytes(label, r, g, b uint8) []byte {
	rec := make([]byte, 0, cifarRecord)
	rec = append(rec, label)
	for _, v := range []uint8{r, g, b} {
		for i := 0; i < cifarImageSize; i++ {
			rec = append(rec, v)
		}
	}
	return rec
}

func TestNormalize(t *testing.T) {
	cases := map[uint8]float64{
		0:   -1,
		255: 1,
		127: -0.5 / 127.5,
		128: 0.5 / 127.5,
	}
	for in, expected := range cases {
		if got := Normalize(in); math.Abs(got-expected) > 1e-12 {
			t.Errorf("Normalize(%d): expected %f, got %f", in, expected, got)
		}
	}
	for v := 0; v < 256; v++ {
		got := Normalize(uint8(v))
		if got < -1 || got > 1 {
			t.Errorf("Normalize(%d) = %f is out of [-1;1]", v, got)
		}
	}
}

func TestFilterByLabel(t *testing.T) {
	images := []RawImage{
		{Label: 8, Pixels: []uint8{1}},
		{Label: 3, Pixels: []uint8{2}},
		{Label: 8, Pixels: []uint8{3}},
		{Label: 0, Pixels: []uint8{4}},
	}
	filtered := FilterByLabel(images, 8)
	expected := []RawImage{
		{Label: 8, Pixels: []uint8{1}},
		{Label: 8, Pixels: []uint8{3}},
	}
	if !reflect.DeepEqual(filtered, expected) {
		t.Errorf("Expected %v, got %v", expected, filtered)
	}
	if len(FilterByLabel(images, 5)) != 0 {
		t.Error("Expected no images for absent label")
	}
}

func TestNewDataset(t *testing.T) {
	shape := ImageShape{Height: 1, Width: 2, Channels: 3}
	ds, err := NewDataset([]RawImage{
		{Label: 1, Pixels: []uint8{0, 255, 0, 255, 0, 255}},
		{Label: 1, Pixels: []uint8{255, 255, 255, 0, 0, 0}},
	}, shape)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 2 {
		t.Errorf("Expected 2 images, got %d", ds.Len())
	}
	if !reflect.DeepEqual([]int(ds.Data.Shape()), []int{2, 1, 2, 3}) {
		t.Errorf("Unexpected data shape %v", ds.Data.Shape())
	}
	if !reflect.DeepEqual(ds.Image(1), []float64{1, 1, 1, -1, -1, -1}) {
		t.Errorf("Unexpected second image %v", ds.Image(1))
	}

	if _, err = NewDataset(nil, shape); err == nil {
		t.Error("Expected error for empty dataset")
	}
	if _, err = NewDataset([]RawImage{{Pixels: []uint8{1, 2}}}, shape); err == nil {
		t.Error("Expected error for image of wrong size")
	}
}

func TestHWCToCHW(t *testing.T) {
	shape := ImageShape{Height: 2, Width: 2, Channels: 3}
	// pixel p has channels (p, 10+p, 20+p)
	src := []float64{
		0, 10, 20, 1, 11, 21,
		2, 12, 22, 3, 13, 23,
	}
	dst := make([]float64, len(src))
	HWCToCHW(dst, src, shape)
	expected := []float64{
		0, 1, 2, 3,
		10, 11, 12, 13,
		20, 21, 22, 23,
	}
	if !reflect.DeepEqual(dst, expected) {
		t.Errorf("Expected %v, got %v", expected, dst)
	}
}

func TestDatasetBatch(t *testing.T) {
	shape := ImageShape{Height: 1, Width: 2, Channels: 2}
	ds, err := NewDataset([]RawImage{
		{Pixels: []uint8{0, 255, 0, 255}},
		{Pixels: []uint8{255, 0, 255, 0}},
	}, shape)
	if err != nil {
		t.Fatal(err)
	}
	batch, err := ds.Batch([]int{1, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual([]int(batch.Shape()), []int{3, 2, 1, 2}) {
		t.Errorf("Unexpected batch shape %v", batch.Shape())
	}
	expected := []float64{
		1, 1, -1, -1,
		-1, -1, 1, 1,
		1, 1, -1, -1,
	}
	if !reflect.DeepEqual(batch.Data().([]float64), expected) {
		t.Errorf("Expected %v, got %v", expected, batch.Data())
	}
	if _, err = ds.Batch([]int{2}); err == nil {
		t.Error("Expected error for index out of range")
	}
}

func TestReadCIFAR10(t *testing.T) {
	data := append(cifarRecordBytes(8, 10, 20, 30), cifarRecordBytes(2, 1, 2, 3)...)
	images, err := ReadCIFAR10(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(images))
	}
	if images[0].Label != 8 || images[1].Label != 2 {
		t.Errorf("Unexpected labels %d and %d", images[0].Label, images[1].Label)
	}
	if len(images[0].Pixels) != cifarImageSize*cifarChannels {
		t.Fatalf("Expected %d pixels, got %d", cifarImageSize*cifarChannels, len(images[0].Pixels))
	}
	// interleaved order
	if !reflect.DeepEqual(images[0].Pixels[:6], []uint8{10, 20, 30, 10, 20, 30}) {
		t.Errorf("Unexpected pixels %v", images[0].Pixels[:6])
	}

	if _, err = ReadCIFAR10(bytes.NewReader(data[:cifarRecord+5])); err == nil {
		t.Error("Expected error for truncated record")
	}
	empty, err := ReadCIFAR10(bytes.NewReader(nil))
	if err != nil {
		t.Error(err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no images, got %d", len(empty))
	}
}

func TestLoadCIFAR10(t *testing.T) {
	dir := t.TempDir()
	for i, name := range CIFARTrainBatches {
		content := append(cifarRecordBytes(8, 255, 0, 255), cifarRecordBytes(uint8(i), 0, 0, 0)...)
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			t.Fatal(err)
		}
	}
	ds, err := LoadCIFAR10(dir, 8)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != len(CIFARTrainBatches) {
		t.Errorf("Expected %d images of class 8, got %d", len(CIFARTrainBatches), ds.Len())
	}
	if ds.Shape != (ImageShape{Height: 32, Width: 32, Channels: 3}) {
		t.Errorf("Unexpected shape %v", ds.Shape)
	}
	if !reflect.DeepEqual(ds.Image(0)[:3], []float64{1, -1, 1}) {
		t.Errorf("Unexpected first pixel %v", ds.Image(0)[:3])
	}

	if err = os.Remove(filepath.Join(dir, CIFARTrainBatches[4])); err != nil {
		t.Fatal(err)
	}
	if _, err = LoadCIFAR10(dir, 8); err == nil {
		t.Error("Expected error for missing batch file")
	}
}
