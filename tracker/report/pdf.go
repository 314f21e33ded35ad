package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/wardenfield/robot-pulse/tracker"
)

const (
	pdfMargin     = 54  // 0.75in
	plotWidthPts  = 432 // 6in
	reportDateFmt = "January 2, 2006"
)

// RenderPDF renders one partition's summary batch into a PDF report at outPath. The
// weekly plot is embedded at six inches wide with its aspect ratio preserved; a missing
// plot file degrades to an inline error note rather than failing the render. The write
// is atomic, matching every other artifact the pipeline produces.
func RenderPDF(item tracker.WorkItem, plotPath, outPath string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	bodyW := pageW - 2*pdfMargin

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(bodyW, 26, tr("Reddit Humanoid Report"), "", 1, "C", false, 0, "")

	if title := reportDateTitle(item.Filename); title != "" {
		pdf.SetFont("Helvetica", "", 13)
		pdf.CellFormat(bodyW, 20, tr(title), "", 1, "C", false, 0, "")
	}
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(bodyW, 18, tr("Weekly Post Plot:"), "", 1, "L", false, 0, "")
	pdf.Ln(4)
	embedPlot(pdf, tr, plotPath, bodyW)
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(bodyW, 18, tr("Post Summaries:"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for i, rec := range item.Summaries {
		writeSummaryBlock(pdf, tr, bodyW, i+1, len(item.Summaries), rec)
	}

	if themes := tracker.TallyThemes(item.Summaries); len(themes) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(bodyW, 18, tr("Recurring themes:"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, tc := range themes {
			line := fmt.Sprintf("%s (%d)", tc.Theme, tc.Count)
			pdf.MultiCell(bodyW, 14, tr("- "+line), "", "L", false)
		}
	}

	if pdf.Err() {
		return fmt.Errorf("render pdf: %w", pdf.Error())
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".tmp_report_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := pdf.Output(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, outPath)
}

// reportDateTitle turns a batch file name into its long-form date, or "" when the name
// is not a partition batch file.
func reportDateTitle(filename string) string {
	key := tracker.PartitionKeyFromFileName(filename)
	if key == "" {
		return ""
	}
	t, err := time.Parse(tracker.PartitionKeyLayout, key)
	if err != nil {
		return key
	}
	return t.Format(reportDateFmt)
}

func embedPlot(pdf *fpdf.Fpdf, tr func(string) string, plotPath string, bodyW float64) {
	if _, err := os.Stat(plotPath); err != nil {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(bodyW, 14, tr("Error: Plot image not found."), "", "L", false)
		return
	}

	info := pdf.RegisterImageOptions(plotPath, fpdf.ImageOptions{ImageType: "PNG"})
	if info == nil || pdf.Err() {
		pdf.ClearError()
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(bodyW, 14, tr("Error: Plot image not found."), "", "L", false)
		return
	}
	h := plotWidthPts * info.Height() / info.Width()
	x := pdfMargin + (bodyW-plotWidthPts)/2
	pdf.ImageOptions(plotPath, x, pdf.GetY(), plotWidthPts, h, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

func writeSummaryBlock(pdf *fpdf.Fpdf, tr func(string) string, bodyW float64, n, total int, rec tracker.SummaryRecord) {
	pdf.SetFont("Helvetica", "B", 12)
	heading := fmt.Sprintf("Summary %d of %d: %s", n, total, rec.Humanoid)
	pdf.MultiCell(bodyW, 16, tr(heading), "", "L", false)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.MultiCell(bodyW, 14, tr("Title: "+rec.Title), "", "L", false)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(bodyW, 14, tr("Summary: "+rec.Summary), "", "L", false)

	if len(rec.Themes) > 0 {
		pdf.MultiCell(bodyW, 14, tr("Themes:"), "", "L", false)
		for _, theme := range rec.Themes {
			pdf.MultiCell(bodyW, 14, tr("  - "+theme), "", "L", false)
		}
	}

	pdf.MultiCell(bodyW, 14, tr(fmt.Sprintf("Post ID: %s", rec.PostID)), "", "L", false)
	pdf.MultiCell(bodyW, 14, tr(fmt.Sprintf("Total Comments: %d", rec.NComments)), "", "L", false)
	pdf.MultiCell(bodyW, 14, tr("Permalink: https://www.reddit.com"+rec.Permalink), "", "L", false)

	// Separator between summary blocks.
	pdf.Ln(6)
	y := pdf.GetY()
	pdf.Line(pdfMargin, y, pdfMargin+bodyW, y)
	pdf.Ln(10)
}
