package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"finance/internal/models"
	"finance/internal/service"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Transactions"

var exportHeaders = []string{"id", "date", "type", "name", "title", "description", "amount", "created_at"}

func exportRow(tx models.Transaction) []string {
	description := ""
	if tx.Description != nil {
		description = *tx.Description
	}
	return []string{
		tx.ID.String(),
		tx.Date.UTC().Format(time.RFC3339),
		string(tx.Type),
		tx.Name,
		tx.Title,
		description,
		tx.Amount.StringFixed(2),
		tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// exportTransactions writes the caller's filtered transactions as CSV (the
// default) or XLSX.
func (s *Server) exportTransactions(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		s.fail(w, r, service.Validation("format must be one of: csv, xlsx"))
		return
	}

	q, err := service.ParseQuerySpec(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows, err := s.transactions.Export(r.Context(), caller, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var (
		body        []byte
		contentType string
	)
	if format == "xlsx" {
		body, err = buildXLSX(rows)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	} else {
		body, err = buildCSV(rows)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		s.fail(w, r, service.Upstream("failed to build export", err))
		return
	}

	filename := fmt.Sprintf("transactions_%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("export interrupted", zap.String("path", r.URL.Path), zap.String("format", format), zap.Error(err))
	}
}

func buildCSV(rows []models.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range rows {
		if err := writer.Write(exportRow(tx)); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", tx.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

var exportColumnWidths = []struct {
	from, to string
	width    float64
}{
	{"A", "A", 38},
	{"B", "B", 22},
	{"D", "E", 20},
	{"F", "F", 30},
	{"H", "H", 22},
}

func buildXLSX(rows []models.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := writeSheetRow(f, exportSheet, 1, header); err != nil {
		return nil, err
	}

	for i, tx := range rows {
		text := exportRow(tx)
		values := make([]interface{}, len(text))
		for j, v := range text {
			values[j] = v
			if exportHeaders[j] == "amount" {
				values[j] = tx.Amount.InexactFloat64()
			}
		}
		if err := writeSheetRow(f, exportSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	for _, c := range exportColumnWidths {
		if err := f.SetColWidth(exportSheet, c.from, c.to, c.width); err != nil {
			return nil, fmt.Errorf("set column width %s:%s: %w", c.from, c.to, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSheetRow fills row (1-based) from column A onwards.
func writeSheetRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
