// Package export renders tabular data as xlsx workbooks and PDF reports.
package export

// Column is one column of an export. Width is in the unit of the target
// format: characters for xlsx, millimetres for PDF. Zero picks a default.
type Column struct {
	Title string
	Width float64
}

// Row holds one value per column.
type Row []interface{}

// Sheet is one worksheet of a workbook.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    []Row
}

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)
