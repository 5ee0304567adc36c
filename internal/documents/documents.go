// Package documents turns uploaded files into extraction documents.
// Spreadsheets become CSV text of their first sheet, PDFs are passed as
// binary and plain text is decoded to UTF-8.
package documents

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
)

// MIME types of supported inputs.
const (
	MIMEPDF  = "application/pdf"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEXLS  = "application/vnd.ms-excel"
	MIMECSV  = "text/csv"
	MIMEText = "text/plain"
)

var mimeByExt = map[string]string{
	".pdf":  MIMEPDF,
	".xlsx": MIMEXLSX,
	".xls":  MIMEXLS,
	".csv":  MIMECSV,
	".txt":  MIMEText,
}

// Supported returns the accepted file extensions.
func Supported() []string {
	return []string{".xlsx", ".xls", ".csv", ".txt", ".pdf"}
}

// MIMEType returns the MIME type for filename's extension, or "".
func MIMEType(filename string) string {
	return mimeByExt[strings.ToLower(filepath.Ext(filename))]
}

// PrepareFile reads path and prepares it.
func PrepareFile(path string) (extract.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Document{}, errors.WrapIO("read", path, err)
	}
	return Prepare(filepath.Base(path), data)
}

// Prepare converts raw file content into a document according to the
// file extension. Unknown extensions yield an UnsupportedDocumentError.
func Prepare(filename string, data []byte) (extract.Document, error) {
	var doc extract.Document

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		text, err := xlsxToCSV(data)
		if err != nil {
			return doc, errors.WrapParse("xlsx", filename, err)
		}
		doc = extract.TextDocument(filename, text)
	case ".xls":
		text, err := xlsToCSV(data)
		if err != nil {
			return doc, errors.WrapParse("xls", filename, err)
		}
		doc = extract.TextDocument(filename, text)
	case ".csv", ".txt":
		doc = extract.TextDocument(filename, decodeText(data))
	case ".pdf":
		doc = extract.BinaryDocument(filename, MIMEPDF, data)
	default:
		return doc, errors.NewUnsupportedDocumentError(filename, sniff(data))
	}

	if err := doc.Validate(); err != nil {
		return extract.Document{}, err
	}
	return doc, nil
}

func xlsxToCSV(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", err
	}
	return writeCSV(rows)
}

func xlsToCSV(data []byte) (string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if len(workbook.GetSheets()) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return "", err
	}

	var rows [][]string
	for _, row := range sheet.GetRows() {
		var cols []string
		for _, cell := range row.GetCols() {
			cols = append(cols, cell.GetString())
		}
		rows = append(rows, cols)
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// decodeText returns data as UTF-8. Bank exports that are not valid UTF-8
// are read as Windows-1252.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := io.ReadAll(charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

func sniff(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return http.DetectContentType(data)
}
