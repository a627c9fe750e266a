package export

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const defaultColWidth = 18

// Workbook writes every sheet with a bold, bordered header row and returns
// the xlsx bytes. Sheets keep the given order.
func Workbook(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, errors.New("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFFF00"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create header style")
	}

	for i, sheet := range sheets {
		switch {
		case i == 0 && sheet.Name != "Sheet1":
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return nil, errors.Wrapf(err, "name sheet %q", sheet.Name)
			}
		case i > 0:
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return nil, errors.Wrapf(err, "add sheet %q", sheet.Name)
			}
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return nil, errors.Wrapf(err, "write sheet %q", sheet.Name)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "write workbook")
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	if len(sheet.Columns) == 0 {
		return nil
	}
	header := make([]interface{}, len(sheet.Columns))
	for i, col := range sheet.Columns {
		header[i] = col.Title
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(sheet.Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", last+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}(row)
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return err
		}
	}

	for i, col := range sheet.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := col.Width
		if width <= 0 {
			width = defaultColWidth
		}
		if err := f.SetColWidth(sheet.Name, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

// ReadSheet returns the rows of one sheet of an uploaded workbook, header included.
func ReadSheet(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}
	return rows, nil
}
