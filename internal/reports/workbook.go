// Package reports exports the cost workbook, imports supplier price lists
// and archives generated files to object storage.
package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"tero-backend/internal/ledger"
	"tero-backend/internal/storage"

	"github.com/xuri/excelize/v2"
)

const (
	SheetRecipes = "Recetas"
	SheetMenu    = "Carta"

	// excelize built-in number formats
	fmtMoney   = 4  // #,##0.00
	fmtPercent = 10 // 0.00%
)

type CostReport struct {
	Recipes     []ledger.RecipeView
	Menu        []ledger.MenuItemView
	GeneratedAt time.Time
}

// BuildCostReport collects the costed recipes and the evaluated menu.
func BuildCostReport(ctx context.Context, svc *ledger.Service) (CostReport, error) {
	recipes, err := svc.Recipes(ctx, ledger.RecipeFilter{})
	if err != nil {
		return CostReport{}, err
	}
	menu, err := svc.Menu(ctx, storage.MenuFilter{})
	if err != nil {
		return CostReport{}, err
	}
	return CostReport{Recipes: recipes, Menu: menu, GeneratedAt: svc.Now()}, nil
}

// FileName is the download name of the workbook.
func (r CostReport) FileName() string {
	return fmt.Sprintf("costos-%s.xlsx", r.GeneratedAt.Format("20060102-150405"))
}

// WriteCostWorkbook renders the report as an xlsx document into w.
func WriteCostWorkbook(w io.Writer, r CostReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRecipes); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetMenu); err != nil {
		return err
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeRecipes(f, st, r.Recipes); err != nil {
		return fmt.Errorf("hoja %s: %w", SheetRecipes, err)
	}
	if err := writeMenu(f, st, r.Menu); err != nil {
		return fmt.Errorf("hoja %s: %w", SheetMenu, err)
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

type styles struct {
	header, money, percent int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: fmtMoney}); err != nil {
		return s, err
	}
	if s.percent, err = f.NewStyle(&excelize.Style{NumFmt: fmtPercent}); err != nil {
		return s, err
	}
	return s, nil
}

func writeHeader(f *excelize.File, sheet string, st styles, cols []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRecipes(f *excelize.File, st styles, recipes []ledger.RecipeView) error {
	sheet := SheetRecipes
	if err := writeHeader(f, sheet, st, []interface{}{"ID", "Receta", "Subreceta", "Líneas", "Costo"}); err != nil {
		return err
	}
	for i, r := range recipes {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		kind := "No"
		if r.IsSubRecipe {
			kind = "Sí"
		}
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{r.ID, r.Name, kind, r.LineCount, r.Cost}); err != nil {
			return err
		}
	}
	if len(recipes) > 0 {
		last := len(recipes) + 1
		if err := f.SetCellStyle(sheet, "E2", fmt.Sprintf("E%d", last), st.money); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "B", "B", 40)
}

func writeMenu(f *excelize.File, st styles, items []ledger.MenuItemView) error {
	sheet := SheetMenu
	header := []interface{}{"Sección", "N°", "Plato", "Receta", "Costo", "Precio de venta", "Margen objetivo", "Margen real", "Estado", "Precio sugerido"}
	if err := writeHeader(f, sheet, st, header); err != nil {
		return err
	}
	for i, m := range items {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		var number, suggested interface{}
		if m.Number != nil {
			number = *m.Number
		}
		if m.SuggestedPrice != nil {
			suggested = *m.SuggestedPrice
		}
		values := []interface{}{
			m.SectionName, number, m.Name, m.RecipeName,
			m.Cost, m.SalePrice, m.TargetMargin, m.RealizedMargin,
			string(m.Status), suggested,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	if len(items) > 0 {
		last := len(items) + 1
		for _, rng := range [][2]string{{"E", "F"}, {"J", "J"}} {
			if err := f.SetCellStyle(sheet, fmt.Sprintf("%s2", rng[0]), fmt.Sprintf("%s%d", rng[1], last), st.money); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sheet, "G2", fmt.Sprintf("H%d", last), st.percent); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "C", "D", 32)
}
