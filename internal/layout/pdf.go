// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pdiddy/pdfextract/internal/caption"
	"github.com/pdiddy/pdfextract/internal/log"
)

// maxFormDepth bounds recursion into nested form XObjects.
const maxFormDepth = 8

// PDFSource parses pages in process. Text runs and image placements come
// from the page content streams; raw image bytes come from pdfcpu.
type PDFSource struct{}

// Name implements Source.
func (s *PDFSource) Name() string { return "pdf" }

// Pages implements Source.
func (s *PDFSource) Pages(ctx context.Context, pdfPath string) ([]Page, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", pdfPath, err)
	}

	r, err := newReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pdfPath, err)
	}

	images := newImageStore(f)

	n := r.NumPage()
	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, readPage(r.Page(i), i, images))
	}
	return pages, nil
}

// newReader wraps pdf.NewReader, which panics on some malformed inputs.
func newReader(ra io.ReaderAt, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed PDF: %v", p)
		}
	}()
	return pdf.NewReader(ra, size)
}

func readPage(p pdf.Page, number int, images *imageStore) Page {
	page := Page{Number: number}
	if mb, ok := mediaBox(p.V); ok {
		page.Width = mb.Width()
		page.Height = mb.Height()
	}

	page.Texts = Group(GroupRuns(pageRuns(p, number)))

	for i, pl := range placements(p, number) {
		img := Image{Index: i + 1, Name: pl.name, BBox: pl.bbox}
		img.Data, img.Ext, img.Err = images.lookup(number, pl.path)
		page.Images = append(page.Images, img)
	}
	return page
}

// pageRuns returns the page's glyph runs, or none when the content stream
// cannot be decoded.
func pageRuns(p pdf.Page, number int) (runs []Run) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("page %d: reading text: %v", number, r)
		}
	}()
	for _, t := range p.Content().Text {
		runs = append(runs, Run{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, Text: t.S})
	}
	return runs
}

// mediaBox finds the page's MediaBox, following inheritance through the
// page tree.
func mediaBox(v pdf.Value) (caption.BBox, bool) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Kind() == pdf.Array && mb.Len() == 4 {
			return caption.NewBBox(
				mb.Index(0).Float64(), mb.Index(1).Float64(),
				mb.Index(2).Float64(), mb.Index(3).Float64(),
			), true
		}
		v = v.Key("Parent")
	}
	return caption.BBox{}, false
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n: apply m first, then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitSquare returns the bounding box of the unit square under m, which is
// where an image XObject is painted.
func (m matrix) unitSquare() caption.BBox {
	x0, y0 := m.apply(0, 0)
	b := caption.BBox{X0: x0, Y0: y0, X1: x0, Y1: y0}
	for _, c := range [][2]float64{{1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(c[0], c[1])
		b = b.Union(caption.BBox{X0: x, Y0: y, X1: x, Y1: y})
	}
	return b
}

func matrixOf(v pdf.Value) (matrix, bool) {
	if v.Kind() != pdf.Array || v.Len() != 6 {
		return identity, false
	}
	var m matrix
	for i := range m {
		m[i] = v.Index(i).Float64()
	}
	return m, true
}

// placement is an image XObject drawn on the page. path lists the resource
// names from the page's XObject dictionary down to the image, one entry per
// enclosing form XObject.
type placement struct {
	name string
	path []string
	bbox caption.BBox
}

// interpreter tracks the graphics state of a content stream closely enough
// to place image XObjects.
type interpreter struct {
	ctm    matrix
	saved  []matrix
	placed []placement
}

func (in *interpreter) run(strm, resources pdf.Value, forms []string) {
	contents := []pdf.Value{strm}
	if strm.Kind() == pdf.Array {
		contents = contents[:0]
		for i := 0; i < strm.Len(); i++ {
			contents = append(contents, strm.Index(i))
		}
	}
	for _, c := range contents {
		pdf.Interpret(c, func(stk *pdf.Stack, op string) {
			args := make([]pdf.Value, stk.Len())
			for i := len(args) - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			in.do(op, args, resources, forms)
		})
	}
}

func (in *interpreter) do(op string, args []pdf.Value, resources pdf.Value, forms []string) {
	switch op {
	case "q":
		in.saved = append(in.saved, in.ctm)
	case "Q":
		if n := len(in.saved); n > 0 {
			in.ctm = in.saved[n-1]
			in.saved = in.saved[:n-1]
		}
	case "cm":
		if len(args) != 6 {
			return
		}
		var m matrix
		for i := range m {
			m[i] = args[i].Float64()
		}
		in.ctm = m.mul(in.ctm)
	case "Do":
		if len(args) != 1 {
			return
		}
		name := args[0].Name()
		xobj := resources.Key("XObject").Key(name)
		switch xobj.Key("Subtype").Name() {
		case "Image":
			in.placed = append(in.placed, placement{
				name: name,
				path: appendName(forms, name),
				bbox: in.ctm.unitSquare(),
			})
		case "Form":
			if len(forms) >= maxFormDepth {
				return
			}
			saved := in.ctm
			if m, ok := matrixOf(xobj.Key("Matrix")); ok {
				in.ctm = m.mul(in.ctm)
			}
			res := xobj.Key("Resources")
			if res.IsNull() {
				res = resources
			}
			in.run(xobj, res, appendName(forms, name))
			in.ctm = saved
		}
	}
}

// placements returns every image drawn on the page in content order. A
// content stream that cannot be decoded keeps the images found before the
// failure.
func placements(p pdf.Page, number int) []placement {
	in := &interpreter{ctm: identity}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warnf("page %d: reading content stream: %v", number, r)
			}
		}()
		in.run(p.V.Key("Contents"), p.Resources(), nil)
	}()
	return in.placed
}

// appendName returns a copy of path with name appended.
func appendName(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}

// imageStore loads raw image bytes with pdfcpu. Images are resolved by
// their resource path, so an image inside a form XObject is found through
// the form's own resources.
type imageStore struct {
	ctx     *model.Context
	loadErr error
	objects map[int]storedImage
}

type storedImage struct {
	data []byte
	ext  string
	err  error
}

func newImageStore(rs io.ReadSeeker) *imageStore {
	s := &imageStore{objects: make(map[int]storedImage)}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		s.loadErr = err
		return s
	}
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTIMAGES
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		log.Warnf("image data unavailable: %v", err)
		s.loadErr = err
		return s
	}
	s.ctx = ctx
	return s
}

// lookup returns the bytes of the image reached through path on pageNr.
func (s *imageStore) lookup(pageNr int, path []string) ([]byte, string, error) {
	name := strings.Join(path, "/")
	if s.loadErr != nil {
		return nil, "", fmt.Errorf("image %s: %w", name, s.loadErr)
	}
	if s.ctx == nil || len(path) == 0 {
		return nil, "", fmt.Errorf("image %s: no data on page %d", name, pageNr)
	}

	sd, objNr, err := s.resolve(pageNr, path)
	if err != nil {
		return nil, "", fmt.Errorf("image %s on page %d: %w", name, pageNr, err)
	}
	st, ok := s.objects[objNr]
	if !ok || objNr == 0 {
		st = s.extract(sd, path[len(path)-1], objNr)
		if objNr != 0 {
			s.objects[objNr] = st
		}
	}
	if st.err == nil && len(st.data) == 0 {
		return nil, st.ext, fmt.Errorf("image %s: empty data", name)
	}
	return st.data, st.ext, st.err
}

// resolve follows path from the page's XObject resources through each
// form XObject to the image stream. A form without resources uses those of
// its parent.
func (s *imageStore) resolve(pageNr int, path []string) (sd *types.StreamDict, objNr int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolving resources: %v", r)
		}
	}()

	pageDict, _, inherited, err := s.ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, 0, err
	}
	res, err := s.ctx.DereferenceDict(pageDict["Resources"])
	if err != nil {
		return nil, 0, err
	}
	if res == nil && inherited != nil {
		res = inherited.Resources
	}

	for i, name := range path {
		xobjects, err := s.ctx.DereferenceDict(res["XObject"])
		if err != nil {
			return nil, 0, err
		}
		ref, ok := xobjects[name]
		if !ok {
			return nil, 0, fmt.Errorf("no XObject %s", strings.Join(path[:i+1], "/"))
		}
		objNr = 0
		if ir, ok := ref.(types.IndirectRef); ok {
			objNr = ir.ObjectNumber.Value()
		}
		sd, _, err = s.ctx.DereferenceStreamDict(ref)
		if err != nil {
			return nil, 0, err
		}
		if sd == nil {
			return nil, 0, fmt.Errorf("XObject %s is not a stream", strings.Join(path[:i+1], "/"))
		}
		if i == len(path)-1 {
			break
		}
		formRes, err := s.ctx.DereferenceDict(sd.Dict["Resources"])
		if err != nil {
			return nil, 0, err
		}
		if formRes != nil {
			res = formRes
		}
	}
	return sd, objNr, nil
}

func (s *imageStore) extract(sd *types.StreamDict, name string, objNr int) (st storedImage) {
	defer func() {
		if r := recover(); r != nil {
			st = storedImage{err: fmt.Errorf("extracting image %s (obj %d): %v", name, objNr, r)}
		}
	}()

	img, err := pdfcpu.ExtractImage(s.ctx, sd, false, name, objNr, false)
	if err != nil {
		return storedImage{err: fmt.Errorf("extracting image %s (obj %d): %w", name, objNr, err)}
	}
	if img == nil || img.Reader == nil {
		return storedImage{err: fmt.Errorf("image %s (obj %d) has no data", name, objNr)}
	}
	st.ext = img.FileType
	if st.data, err = io.ReadAll(img); err != nil {
		st.err = fmt.Errorf("reading image %s (obj %d): %w", name, objNr, err)
	}
	return st
}
