// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package figures

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdfextract/internal/caption"
	"github.com/pdiddy/pdfextract/internal/layout"
	"github.com/pdiddy/pdfextract/internal/pdftest"
	"github.com/pdiddy/pdfextract/pkg/types"
)

// fakeSource returns canned pages.
type fakeSource struct {
	pages []layout.Page
	err   error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Pages(context.Context, string) ([]layout.Page, error) {
	return f.pages, f.err
}

var (
	imgBox   = caption.BBox{X0: 100, Y0: 500, X1: 300, Y1: 600}
	belowBox = caption.BBox{X0: 100, Y0: 480, X1: 300, Y1: 495}
)

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestExtractSingleCaption(t *testing.T) {
	dir := t.TempDir()
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0xfe}
	src := &fakeSource{pages: []layout.Page{{
		Number: 3,
		Images: []layout.Image{{Index: 1, Name: "Im0", BBox: imgBox, Ext: "png", Data: data}},
		Texts:  []layout.TextBlock{{BBox: belowBox, Text: "  Figure 4. An alembic.\n"}},
	}}}
	var out bytes.Buffer

	recs, err := Extract(context.Background(), src, "book.pdf", types.FigureConfig{CaptionThreshold: 10, OutputDir: dir}, &out)
	require.NoError(t, err)

	imagePath := filepath.Join(dir, "page3_img1.png")
	assert.Equal(t, []types.FigureCaption{{Page: 3, ImagePath: imagePath, Caption: "Figure 4. An alembic."}}, recs)

	written, err := os.ReadFile(imagePath)
	require.NoError(t, err)
	assert.Equal(t, data, written, "image bytes must round-trip unchanged")

	sidecar, err := os.ReadFile(filepath.Join(dir, "page3_img1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Figure 4. An alembic.", string(sidecar))

	assert.Contains(t, out.String(), "[Page 3] Image saved at: "+imagePath)
	assert.Contains(t, out.String(), "Caption: Figure 4. An alembic.")
}

func TestExtractCaptionRules(t *testing.T) {
	tests := []struct {
		name      string
		texts     []layout.TextBlock
		threshold float64
		backend   types.LayoutBackend
		want      string // empty means no record
	}{
		{
			name:  "beyond threshold",
			texts: []layout.TextBlock{{BBox: caption.BBox{X0: 100, Y0: 470, X1: 300, Y1: 489}, Text: "far"}},
		},
		{
			name:    "poppler default threshold reaches further",
			backend: types.LayoutPoppler,
			texts:   []layout.TextBlock{{BBox: caption.BBox{X0: 100, Y0: 440, X1: 300, Y1: 455}, Text: "Plate II"}},
			want:    "Plate II",
		},
		{
			name:  "overlap of exactly thirty percent",
			texts: []layout.TextBlock{{BBox: caption.BBox{X0: 240, Y0: 480, X1: 400, Y1: 495}, Text: "margin"}},
		},
		{
			name: "several blocks in discovery order",
			texts: []layout.TextBlock{
				{BBox: caption.BBox{X0: 100, Y0: 491, X1: 200, Y1: 497}, Text: "Fig. 7"},
				{BBox: caption.BBox{X0: 400, Y0: 491, X1: 500, Y1: 497}, Text: "other column"},
				{BBox: caption.BBox{X0: 150, Y0: 490, X1: 300, Y1: 496}, Text: "Apparatus of Priestley"},
			},
			want: "Fig. 7 Apparatus of Priestley",
		},
		{
			name:      "explicit threshold overrides the backend default",
			backend:   types.LayoutPoppler,
			threshold: 2,
			texts:     []layout.TextBlock{{BBox: belowBox, Text: "gap of five"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := &fakeSource{pages: []layout.Page{{
				Number: 1,
				Images: []layout.Image{{Index: 1, BBox: imgBox, Ext: "jpg", Data: []byte("jpeg")}},
				Texts:  tt.texts,
			}}}
			cfg := types.FigureConfig{Backend: tt.backend, CaptionThreshold: tt.threshold, OutputDir: dir}

			recs, err := Extract(context.Background(), src, "a.pdf", cfg, &bytes.Buffer{})
			require.NoError(t, err)

			if tt.want == "" {
				assert.Empty(t, recs)
				assert.Equal(t, []string{"figures.json"}, listDir(t, dir), "no image or caption files")
				return
			}
			require.Len(t, recs, 1)
			assert.Equal(t, tt.want, recs[0].Caption)
			assert.Equal(t, filepath.Join(dir, "page1_img1.jpg"), recs[0].ImagePath)
		})
	}
}

func TestExtractImageIndexCountsUncaptionedImages(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{pages: []layout.Page{{
		Number: 2,
		Images: []layout.Image{
			{Index: 1, BBox: caption.BBox{X0: 100, Y0: 700, X1: 300, Y1: 760}, Ext: "png", Data: []byte("a")},
			{Index: 2, BBox: imgBox, Data: []byte("b")},
		},
		Texts: []layout.TextBlock{{BBox: belowBox, Text: "Figure 9"}},
	}}}

	recs, err := Extract(context.Background(), src, "a.pdf", types.FigureConfig{CaptionThreshold: 10, OutputDir: dir}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, filepath.Join(dir, "page2_img2.png"), recs[0].ImagePath)
	assert.ElementsMatch(t, []string{"page2_img2.png", "page2_img2.txt", "figures.json"}, listDir(t, dir))
}

func TestExtractSkipsUnreadableImages(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{pages: []layout.Page{{
		Number: 1,
		Images: []layout.Image{
			{Index: 1, Name: "Im0", BBox: imgBox, Err: errors.New("unsupported filter JBIG2Decode")},
			{Index: 2, Name: "Im1", BBox: imgBox},
		},
		Texts: []layout.TextBlock{{BBox: belowBox, Text: "Figure 1"}},
	}}}
	var out bytes.Buffer

	recs, err := Extract(context.Background(), src, "a.pdf", types.FigureConfig{CaptionThreshold: 10, OutputDir: dir}, &out)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 2, strings.Count(out.String(), "Error extracting image data:"))
	assert.Contains(t, out.String(), "JBIG2Decode")
	assert.Equal(t, []string{"figures.json"}, listDir(t, dir))
}

func TestExtractManifest(t *testing.T) {
	src := &fakeSource{pages: []layout.Page{{
		Number: 1,
		Images: []layout.Image{{Index: 1, BBox: imgBox, Ext: "jpg", Data: []byte("x")}},
		Texts:  []layout.TextBlock{{BBox: belowBox, Text: "Figure 1. 蒸馏器"}},
	}}}

	t.Run("json", func(t *testing.T) {
		dir := t.TempDir()
		recs, err := Extract(context.Background(), src, "a.pdf", types.FigureConfig{CaptionThreshold: 10, OutputDir: dir}, &bytes.Buffer{})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "figures.json"))
		require.NoError(t, err)
		var got []types.FigureCaption
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, recs, got)
	})

	t.Run("yaml", func(t *testing.T) {
		dir := t.TempDir()
		cfg := types.FigureConfig{CaptionThreshold: 10, OutputDir: dir, ManifestFormat: types.ManifestYAML}
		recs, err := Extract(context.Background(), src, "a.pdf", cfg, &bytes.Buffer{})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "figures.yaml"))
		require.NoError(t, err)
		var got []types.FigureCaption
		require.NoError(t, yaml.Unmarshal(data, &got))
		assert.Equal(t, recs, got)
		assert.NoFileExists(t, filepath.Join(dir, "figures.json"))
	})

	t.Run("unknown format", func(t *testing.T) {
		cfg := types.FigureConfig{CaptionThreshold: 10, OutputDir: t.TempDir(), ManifestFormat: "csv"}
		_, err := Extract(context.Background(), src, "a.pdf", cfg, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestExtractSourceError(t *testing.T) {
	_, err := Extract(context.Background(), &fakeSource{err: errors.New("malformed PDF")}, "a.pdf",
		types.FigureConfig{OutputDir: t.TempDir()}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed PDF")
}

func TestExtractFromPDF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, img, nil))

	pdfPath := filepath.Join(t.TempDir(), "figure.pdf")
	require.NoError(t, os.WriteFile(pdfPath, pdftest.Figure(jpg.Bytes(), "Figure 1. Test"), 0o644))

	dir := t.TempDir()
	cfg := types.FigureConfig{Backend: types.LayoutPDF, OutputDir: dir}
	recs, err := Extract(context.Background(), &layout.PDFSource{}, pdfPath, cfg, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, 1, recs[0].Page)
	assert.Equal(t, filepath.Join(dir, "page1_img1.jpg"), recs[0].ImagePath)
	assert.Contains(t, recs[0].Caption, "Figure")

	written, err := os.ReadFile(recs[0].ImagePath)
	require.NoError(t, err)
	assert.Equal(t, jpg.Bytes(), written)
}

func TestExtractFromFormWrappedImages(t *testing.T) {
	encode := func(step int) []byte {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		for i := range img.Pix {
			img.Pix[i] = uint8(i * step)
		}
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, img, nil))
		return buf.Bytes()
	}
	first, second := encode(3), encode(11)

	pdfPath := filepath.Join(t.TempDir(), "forms.pdf")
	require.NoError(t, os.WriteFile(pdfPath, pdftest.FormFigures(first, second), 0o644))

	dir := t.TempDir()
	var out bytes.Buffer
	cfg := types.FigureConfig{Backend: types.LayoutPDF, OutputDir: dir}
	recs, err := Extract(context.Background(), &layout.PDFSource{}, pdfPath, cfg, &out)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Error extracting image data")
	require.Len(t, recs, 2)

	assert.Equal(t, filepath.Join(dir, "page1_img1.jpg"), recs[0].ImagePath)
	assert.Contains(t, recs[0].Caption, "Alpha")
	assert.Equal(t, filepath.Join(dir, "page1_img2.jpg"), recs[1].ImagePath)
	assert.Contains(t, recs[1].Caption, "Beta")

	for i, want := range [][]byte{first, second} {
		written, err := os.ReadFile(recs[i].ImagePath)
		require.NoError(t, err)
		assert.Equal(t, want, written)
	}
}
