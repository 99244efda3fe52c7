package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/errs"

	"github.com/jung-kurt/gofpdf"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// Formats lists the supported export formats in menu order.
var Formats = []string{FormatJSON, FormatCSV, FormatPDF}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Export renders tasks in the given format, sorted by due date. The input
// slice is not reordered.
func Export(tasks []*entities.Task, format string) ([]byte, error) {
	sorted := make([]*entities.Task, len(tasks))
	copy(sorted, tasks)
	entities.SortByDueDate(sorted)

	switch strings.ToLower(format) {
	case FormatJSON:
		return entities.MarshalTasks(sorted)
	case FormatCSV:
		return exportCSV(sorted)
	case FormatPDF:
		return exportPDF(sorted)
	default:
		return nil, errs.ValidationErrorf("unknown export format %q", format)
	}
}

func exportCSV(tasks []*entities.Task) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"Title", "Description", "DueDate"})
	for _, task := range tasks {
		_ = w.Write([]string{task.Title, task.Description, task.FormattedDueDate()})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.InternalErrorf("failed to write csv: %v", err)
	}
	return b.Bytes(), nil
}

func exportPDF(tasks []*entities.Task) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, tr("Aufgaben"))
	pdf.Ln(12)

	if len(tasks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(40, 6, tr("Keine Aufgaben vorhanden."))
	}

	for _, task := range tasks {
		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s (%s)", task.Title, task.FormattedDueDate())), "0", "L", false)
		if task.Description != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, tr(task.Description), "0", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errs.InternalErrorf("failed to render pdf: %v", err)
	}
	return buf.Bytes(), nil
}
