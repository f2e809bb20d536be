package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Service converts generated markdown documents into downloadable PDFs.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new render service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// DocumentPDF renders a markdown document to a PDF byte slice. The title is
// set as PDF metadata only; the document body is expected to carry its own
// heading.
func (s *Service) DocumentPDF(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Rendering document to PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	)

	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{
		pdf:    pdf,
		source: source,
		font:   "Arial",
		size:   9,
	}

	if err := ast.Walk(doc, w.walk); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render PDF")
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write PDF output")
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF rendered")
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listDepth int
}

func (w *pdfWriter) resetFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(w.font, style, w.size)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		w.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			w.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			w.pdf.Write(5, string(n.Text(w.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.resetFont()
	case ast.KindCodeSpan:
		return w.codeSpan(n, entering), nil
	case ast.KindFencedCodeBlock:
		if entering {
			w.codeBlock(n.(*ast.FencedCodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindCodeBlock:
		if entering {
			w.codeBlock(n.(*ast.CodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			w.pdf.Ln(5)
			w.pdf.SetX(15 + float64(w.listDepth)*5.0)
			w.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			w.pdf.Ln(2)
			w.pdf.Line(15, w.pdf.GetY(), 195, w.pdf.GetY())
			w.pdf.Ln(2)
		}
	case extast.KindTable:
		if entering {
			w.table(n)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.pdf.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		}
		w.pdf.SetFont(w.font, "B", size)
	} else {
		w.pdf.Ln(6)
		w.resetFont()
	}
}

func (w *pdfWriter) codeSpan(n ast.Node, entering bool) ast.WalkStatus {
	if entering {
		w.pdf.SetFont("Courier", "", w.size)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				w.pdf.Write(5, string(t.Segment.Value(w.source)))
			}
		}
	} else {
		w.resetFont()
	}
	return ast.WalkSkipChildren
}

func (w *pdfWriter) codeBlock(lines *text.Segments) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Courier", "", w.size)
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.pdf.MultiCell(0, 5, string(seg.Value(w.source)), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.resetFont()
	w.pdf.Ln(2)
}

func (w *pdfWriter) table(n ast.Node) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch tr := child.(type) {
			case *extast.TableRow:
				rows = append(rows, w.tableRow(tr))
			case *extast.TableHeader:
				collect(tr)
			}
		}
	}
	collect(n)

	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	w.pdf.Ln(2)

	pageWidth := 180.0
	numCols := len(rows[0])
	colWidth := pageWidth / float64(numCols)
	lineHeight := 4.0
	fontSize := 8.0

	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont(w.font, "B", fontSize)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont(w.font, "", fontSize)
			w.pdf.SetFillColor(255, 255, 255)
		}

		rowHeight := w.rowHeight(row, colWidth, lineHeight)
		startX, startY := w.pdf.GetX(), w.pdf.GetY()
		if startY+rowHeight > 287 {
			w.pdf.AddPage()
			startY = w.pdf.GetY()
		}

		for j := 0; j < numCols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			x := startX + float64(j)*colWidth
			fill := "D"
			if i == 0 {
				fill = "FD"
			}
			w.pdf.Rect(x, startY, colWidth, rowHeight, fill)
			w.pdf.SetXY(x+1, startY+1)
			w.cellText(cell, colWidth-2, lineHeight)
		}
		w.pdf.SetXY(startX, startY+rowHeight)
	}

	w.pdf.Ln(3)
	w.resetFont()
}

func (w *pdfWriter) tableRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(w.source)))
		}
	}
	return row
}

func (w *pdfWriter) rowHeight(row []string, colWidth, lineHeight float64) float64 {
	maxLines := 1
	for _, cell := range row {
		if n := len(w.wrapLines(cell, colWidth-2)); n > maxLines {
			maxLines = n
		}
	}
	if maxLines > 8 {
		maxLines = 8
	}
	return float64(maxLines)*lineHeight + 2
}

func (w *pdfWriter) cellText(cell string, width, lineHeight float64) {
	for _, line := range w.wrapLines(cell, width) {
		w.pdf.CellFormat(width, lineHeight, line, "", 2, "L", false, 0, "")
	}
}

// wrapLines breaks text into lines that fit within width using the
// current font's measured string widths.
func (w *pdfWriter) wrapLines(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if w.pdf.GetStringWidth(candidate) <= width {
			current = candidate
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}
