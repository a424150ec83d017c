package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tero-backend/internal/models"
	"tero-backend/internal/storage"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyWorkbook = errors.New("el archivo Excel está vacío")
	ErrNoSheet       = errors.New("el archivo Excel no tiene hojas")
)

// PriceRow is one parsed line of a supplier price list. Exactly one of
// IngredientID and IngredientName is set.
type PriceRow struct {
	Line           int
	IngredientID   uint
	IngredientName string
	Price          float64
	Date           time.Time
}

type ImportIssue struct {
	Line   int    `json:"line"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006"}

// ParsePriceList reads the first sheet of an xlsx price list with columns
// ingredient (id or name), price and an optional date. A header row is
// detected and skipped; rows without a date take defaultDate.
func ParsePriceList(r io.Reader, defaultDate time.Time) ([]PriceRow, []ImportIssue, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo leer el Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo leer la hoja: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyWorkbook
	}

	start := 0
	if isHeader(rows[0]) {
		start = 1
	}

	var out []PriceRow
	var issues []ImportIssue
	for i := start; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		pr := PriceRow{Line: line, Date: defaultDate}
		ref := strings.TrimSpace(row[0])
		if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
			pr.IngredientID = uint(id)
		} else {
			pr.IngredientName = ref
		}

		if len(row) < 2 {
			issues = append(issues, ImportIssue{Line: line, Value: ref, Reason: "falta el precio"})
			continue
		}
		price, err := parseAmount(row[1])
		if err != nil || price <= 0 {
			issues = append(issues, ImportIssue{Line: line, Value: row[1], Reason: "precio inválido"})
			continue
		}
		pr.Price = price

		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			d, err := parseDate(row[2])
			if err != nil {
				issues = append(issues, ImportIssue{Line: line, Value: row[2], Reason: "fecha inválida"})
				continue
			}
			pr.Date = d
		}
		out = append(out, pr)
	}
	return out, issues, nil
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	if first == "ID" {
		return true
	}
	for _, word := range []string{"INSUMO", "INGREDIENTE", "PRODUCTO"} {
		if strings.Contains(first, word) {
			return true
		}
	}
	return false
}

// parseAmount accepts "1234.5", "1234,5", "$ 1.234,50" and "1,234.50".
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, " ", "")
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("fecha %q no reconocida", s)
}

type ImportResult struct {
	Imported     int                       `json:"imported"`
	Observations []models.PriceObservation `json:"observations"`
	Unmatched    []string                  `json:"unmatched"`
	Issues       []ImportIssue             `json:"issues"`
}

// Importer records parsed price rows as new price observations.
type Importer struct {
	Store *storage.Store
}

// Import resolves each row to an ingredient by id or case-insensitive name
// and appends one observation per row. Unknown ingredients are reported, not fatal.
func (im *Importer) Import(ctx context.Context, rows []PriceRow) (ImportResult, error) {
	res := ImportResult{Observations: []models.PriceObservation{}, Unmatched: []string{}, Issues: []ImportIssue{}}

	var ingredients []models.Ingredient
	if err := im.Store.DB().WithContext(ctx).Select("id", "name").Find(&ingredients).Error; err != nil {
		return res, fmt.Errorf("insumos: %w", err)
	}
	byName := make(map[string]uint, len(ingredients))
	known := make(map[uint]bool, len(ingredients))
	for _, ing := range ingredients {
		byName[normalizeName(ing.Name)] = ing.ID
		known[ing.ID] = true
	}

	for _, row := range rows {
		id := row.IngredientID
		if id == 0 {
			id = byName[normalizeName(row.IngredientName)]
		}
		if id == 0 || !known[id] {
			label := row.IngredientName
			if label == "" {
				label = strconv.FormatUint(uint64(row.IngredientID), 10)
			}
			res.Unmatched = append(res.Unmatched, label)
			continue
		}

		obs, err := im.Store.InsertPriceObservation(ctx, id, row.Price, row.Date)
		if err != nil {
			slog.Warn("precio importado no registrado", "line", row.Line, "ingredient_id", id, "err", err)
			res.Issues = append(res.Issues, ImportIssue{Line: row.Line, Value: row.IngredientName, Reason: err.Error()})
			continue
		}
		res.Observations = append(res.Observations, obs)
		res.Imported++
	}
	return res, nil
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
