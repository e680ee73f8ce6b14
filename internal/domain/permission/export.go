package permission

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// WriteScheduleCSV writes one row per request.
func WriteScheduleCSV(w io.Writer, requests []Request) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "requester_id", "approver_id", "leave_type", "start_date", "end_date", "status"}); err != nil {
		return err
	}
	for _, req := range requests {
		row := []string{
			req.ID, req.RequesterID, req.ApproverID, req.LeaveType,
			FormatDate(req.StartDate), FormatDate(req.EndDate), req.Status,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteScheduleICS writes an iCalendar document with one all-day event per
// request. DTEND is exclusive per RFC 5545, hence the one-day shift.
func WriteScheduleICS(w io.Writer, requests []Request) error {
	var builder strings.Builder
	builder.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//LeaveDesk//Permission Calendar//EN\r\n")
	for _, req := range requests {
		builder.WriteString("BEGIN:VEVENT\r\n")
		builder.WriteString(fmt.Sprintf("UID:%s\r\n", req.ID))
		builder.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", req.StartDate.Format("20060102")))
		builder.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", req.EndDate.AddDate(0, 0, 1).Format("20060102")))
		builder.WriteString(fmt.Sprintf("SUMMARY:%s (%s)\r\n", req.LeaveType, req.Status))
		builder.WriteString("END:VEVENT\r\n")
	}
	builder.WriteString("END:VCALENDAR\r\n")
	_, err := io.WriteString(w, builder.String())
	return err
}

// WriteSchedulePDF renders the schedule as a simple table.
func WriteSchedulePDF(w io.Writer, requests []Request) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Schedule")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 7, "Requester", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "Type", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "Start", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "End", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "Status", "1", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, req := range requests {
		pdf.CellFormat(55, 7, req.RequesterID, "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, req.LeaveType, "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, FormatDate(req.StartDate), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, FormatDate(req.EndDate), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, req.Status, "1", 1, "", false, 0, "")
	}

	return pdf.Output(w)
}
