package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"wallet/models"
	"wallet/utils"
)

// ExportFormat формат выгрузки транзакций
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportXML ExportFormat = "xml"
)

// csvFlushEvery число строк между сбросами буфера CSV
const csvFlushEvery = 100

// ParseExportFormat разбирает формат выгрузки, по умолчанию CSV
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXML:
		return ExportXML, nil
	}
	return "", utils.NewValidationError(fmt.Sprintf("unknown export format %q", s))
}

// ContentType возвращает MIME-тип формата
func (f ExportFormat) ContentType() string {
	if f == ExportXML {
		return "application/xml; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// TransactionIterator однопроходный источник транзакций
type TransactionIterator interface {
	Next() bool
	Transaction() models.Transaction
	Err() error
}

// ExportTransactions пишет транзакции в w построчно, не загружая их целиком в память
func ExportTransactions(w io.Writer, format ExportFormat, it TransactionIterator) error {
	switch format {
	case ExportXML:
		return exportXML(w, it)
	default:
		return exportCSV(w, it)
	}
}

func exportCSV(w io.Writer, it TransactionIterator) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "cardId", "type", "data", "sum", "time", "isInvalid", "error"}); err != nil {
		return err
	}

	rows := 0
	for it.Next() {
		t := it.Transaction()
		record := []string{
			t.ID.String(),
			t.CardID.String(),
			string(t.Type),
			t.Data,
			utils.FormatAmount(t.Sum),
			t.Time.UTC().Format(time.RFC3339),
			strconv.FormatBool(t.InvalidInfo.IsInvalid),
			t.InvalidInfo.Error,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
		rows++
		if rows%csvFlushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// exportXML пишет корневой элемент вручную, а каждую транзакцию отдельным документом etree
func exportXML(w io.Writer, it TransactionIterator) error {
	if _, err := io.WriteString(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<transactions>\n"); err != nil {
		return err
	}

	for it.Next() {
		t := it.Transaction()

		doc := etree.NewDocument()
		el := doc.CreateElement("transaction")
		el.CreateAttr("id", t.ID.String())
		el.CreateAttr("cardId", t.CardID.String())
		el.CreateElement("type").SetText(string(t.Type))
		el.CreateElement("data").SetText(t.Data)
		el.CreateElement("sum").SetText(utils.FormatAmount(t.Sum))
		el.CreateElement("time").SetText(t.Time.UTC().Format(time.RFC3339))
		if t.InvalidInfo.IsInvalid {
			invalid := el.CreateElement("invalid")
			invalid.SetText(t.InvalidInfo.Error)
		}
		doc.Indent(etree.NoIndent)

		if _, err := io.WriteString(w, "  "); err != nil {
			return err
		}
		if _, err := doc.WriteTo(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	_, err := io.WriteString(w, "</transactions>\n")
	return err
}
