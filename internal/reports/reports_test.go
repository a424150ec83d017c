package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tero-backend/internal/ledger"
	"tero-backend/internal/margin"
	"tero-backend/internal/models"
	"tero-backend/internal/storage"
	"tero-backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var ctx = context.Background()

func sampleReport() CostReport {
	seven := 7
	suggested := 200.0
	return CostReport{
		GeneratedAt: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		Recipes: []ledger.RecipeView{
			{Recipe: models.Recipe{ID: 1, Name: "Milanesa napolitana"}, Cost: 2450.5, LineCount: 4},
			{Recipe: models.Recipe{ID: 2, Name: "Salsa fileto", IsSubRecipe: true}, Cost: 300, LineCount: 2},
		},
		Menu: []ledger.MenuItemView{
			{
				ID: 1, Name: "Milanesa", RecipeName: "Milanesa napolitana", SectionName: "Principales", Number: &seven,
				Evaluation: margin.Evaluation{Cost: 50, SalePrice: 100, TargetMargin: 0.75, RealizedMargin: 0.5, Status: margin.StatusCritical, SuggestedPrice: &suggested},
			},
		},
	}
}

func TestWriteCostWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCostWorkbook(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetRecipes, SheetMenu}, f.GetSheetList())

	rows, err := f.GetRows(SheetRecipes)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Receta", rows[0][1])
	assert.Equal(t, "Milanesa napolitana", rows[1][1])
	assert.Equal(t, "Sí", rows[2][2])

	cost, err := f.GetCellValue(SheetRecipes, "E2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "2450.5", cost)

	menu, err := f.GetRows(SheetMenu)
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, "Principales", menu[1][0])
	assert.Equal(t, "7", menu[1][1])
	assert.Equal(t, "CRITICO", menu[1][8])

	suggested, err := f.GetCellValue(SheetMenu, "J2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "200", suggested)
}

func TestCostReportFileName(t *testing.T) {
	assert.Equal(t, "costos-20260315-093000.xlsx", sampleReport().FileName())
}

func priceList(t *testing.T, rows [][]interface{}) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParsePriceList(t *testing.T) {
	def := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	in := priceList(t, [][]interface{}{
		{"Insumo", "Precio", "Fecha"},
		{"Harina 000", "1.234,50", "2026-03-10"},
		{"12", "980", ""},
		{"Aceite", "abc", ""},
		{"", "", ""},
		{"Sal fina", "$ 350", "10/03/2026"},
		{"Azúcar"},
		{"Queso", "4500", "mañana"},
	})

	rows, issues, err := ParsePriceList(in, def)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "Harina 000", rows[0].IngredientName)
	assert.InDelta(t, 1234.5, rows[0].Price, 1e-9)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 2, rows[0].Line)

	assert.Equal(t, uint(12), rows[1].IngredientID)
	assert.Empty(t, rows[1].IngredientName)
	assert.Equal(t, def, rows[1].Date)

	assert.InDelta(t, 350.0, rows[2].Price, 1e-9)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), rows[2].Date)

	require.Len(t, issues, 3)
	assert.Equal(t, 4, issues[0].Line)
	assert.Equal(t, "falta el precio", issues[1].Reason)
	assert.Equal(t, "fecha inválida", issues[2].Reason)
}

func TestParsePriceList_NoHeader(t *testing.T) {
	rows, issues, err := ParsePriceList(priceList(t, [][]interface{}{{"Harina", 100}}), time.Now())
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Line)
}

func TestParsePriceList_NotExcel(t *testing.T) {
	_, _, err := ParsePriceList(bytes.NewBufferString("not a workbook"), time.Now())
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1234.5", 1234.5},
		{"1234,5", 1234.5},
		{"$ 1.234,50", 1234.5},
		{"1,234.50", 1234.5},
		{" 980 ", 980},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestImporter_Import(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	im := &Importer{Store: storage.New(db)}

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT "id","name" FROM "ingredients"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Harina  000").AddRow(4, "Aceite"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "ingredients" WHERE "ingredients"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tax_pct", "waste_pct"}).AddRow(3, "Harina 000", 21.0, 0.0))
	mock.ExpectQuery(`INSERT INTO "price_observations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(50))
	mock.ExpectExec(`UPDATE "ingredients" SET "updated_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := im.Import(ctx, []PriceRow{
		{Line: 2, IngredientName: "harina 000", Price: 1000, Date: date},
		{Line: 3, IngredientName: "Manteca", Price: 500, Date: date},
		{Line: 4, IngredientID: 99, Price: 10, Date: date},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Observations, 1)
	assert.InDelta(t, 1210.0, res.Observations[0].FinalCost, 1e-9)
	assert.Equal(t, []string{"Manteca", "99"}, res.Unmatched)
	assert.Empty(t, res.Issues)
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveCostReport(t *testing.T) {
	putter := &fakePutter{}
	a := NewArchiver(putter, "tero-reportes")

	body, location, err := a.ArchiveCostReport(ctx, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "s3://tero-reportes/reportes/2026/03/costos-20260315-093000.xlsx", location)

	require.Len(t, putter.inputs, 1)
	assert.Equal(t, "tero-reportes", *putter.inputs[0].Bucket)
	assert.Equal(t, xlsxMIME, *putter.inputs[0].ContentType)
	assert.Equal(t, body, putter.bodies[0])
}

func TestArchiver_Disabled(t *testing.T) {
	var a *Archiver
	assert.False(t, a.Enabled())

	body, location, err := a.ArchiveCostReport(ctx, sampleReport())
	require.NoError(t, err)
	assert.Empty(t, location)
	assert.NotEmpty(t, body)
}

func TestArchiver_UploadError(t *testing.T) {
	a := NewArchiver(&fakePutter{err: errors.New("denied")}, "b")
	_, err := a.Upload(ctx, "k.xlsx", []byte("x"))
	assert.ErrorContains(t, err, "denied")
}
