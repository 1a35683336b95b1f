package itinerary

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const pdfContentType = "application/pdf"

// RenderPDF lays the itinerary out on A4 pages with the core Helvetica font.
// Text outside cp1252 is translated on a best-effort basis.
func RenderPDF(days []types.DayPlan, tips []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Hong Kong Itinerary", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 10, "Your Hong Kong Itinerary")
	pdf.Ln(14)

	for _, day := range days {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Cell(0, 8, tr(fmt.Sprintf("Day %d", day.Day)))
		pdf.Ln(9)

		if len(day.Activities) == 0 {
			pdf.SetFont("Helvetica", "I", 11)
			pdf.Cell(0, 6, "Free day")
			pdf.Ln(8)
			continue
		}

		for _, a := range day.Activities {
			pdf.SetFont("Helvetica", "B", 11)
			title := a.Name
			if a.Time != "" {
				title = a.Time + ": " + a.Name
			}
			pdf.MultiCell(0, 6, tr(title), "", "", false)

			pdf.SetFont("Helvetica", "", 10)
			for _, line := range activityLines(a) {
				pdf.MultiCell(0, 5, tr(line), "", "", false)
			}
			pdf.Ln(2)
		}

		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, tr(fmt.Sprintf("Estimated cost: HK$%.0f", day.EstimatedCost)))
		pdf.Ln(6)
		if day.TransportationInfo != "" {
			pdf.MultiCell(0, 5, tr("Getting around: "+day.TransportationInfo), "", "", false)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Total estimated cost: HK$%.0f", TotalCost(days))))
	pdf.Ln(10)

	if len(tips) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Practical tips")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, tip := range tips {
			pdf.MultiCell(0, 5, tr("- "+tip), "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render itinerary pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func activityLines(a types.Activity) []string {
	var lines []string
	if a.Description != "" && a.Description != a.Name {
		lines = append(lines, a.Description)
	}
	if a.Duration != "" {
		lines = append(lines, "Duration: "+a.Duration)
	}
	if a.Cost > 0 {
		lines = append(lines, fmt.Sprintf("Cost: HK$%.0f", a.Cost))
	}
	if a.Transport != "" {
		lines = append(lines, "Transport: "+a.Transport)
	}
	if a.Tips != "" {
		lines = append(lines, "Tips: "+a.Tips)
	}
	return lines
}
