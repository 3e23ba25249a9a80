package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields printed on a completion certificate.
type CertificateData struct {
	StudentName    string
	CourseTitle    string
	Level          string
	InstructorName string
	IssuedAt       time.Time
	SerialNumber   string
}

// CertificateRenderer renders completion certificates as landscape PDFs.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render produces the PDF bytes for a single certificate.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.StudentName == "" || data.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student name and course title")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 16, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 12, data.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, data.CourseTitle, "", 1, "C", false, 0, "")
	if data.Level != "" {
		pdf.Ln(2)
		pdf.SetFont("Arial", "I", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Level: %s", capitalize(data.Level)), "", 1, "C", false, 0, "")
	}
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	issued := data.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	pdf.CellFormat(0, 7, fmt.Sprintf("Issued on %s", issued.Format("2 January 2006")), "", 1, "C", false, 0, "")
	if data.InstructorName != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Instructor: %s", data.InstructorName), "", 1, "C", false, 0, "")
	}
	if data.SerialNumber != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Serial: %s", data.SerialNumber), "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
