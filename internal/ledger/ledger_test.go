package ledger

import (
	"context"
	"testing"
	"time"

	"tero-backend/internal/billing"
	"tero-backend/internal/costing"
	"tero-backend/internal/margin"
	"tero-backend/internal/models"
	"tero-backend/internal/storage"
	"tero-backend/internal/testutil"
	"tero-backend/internal/variation"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newService(t *testing.T, now time.Time) (*Service, sqlmock.Sqlmock) {
	db, mock := testutil.NewMockDB(t)
	svc := New(storage.New(db), margin.DefaultPolicy(), variation.DefaultConfig())
	svc.Now = func() time.Time { return now }
	return svc, mock
}

func expectCostBook(mock sqlmock.Sqlmock, prices map[uint]float64, lines *sqlmock.Rows) {
	priceRows := sqlmock.NewRows([]string{"ingredient_id", "final_cost"})
	for id := uint(1); id <= 10; id++ {
		if p, ok := prices[id]; ok {
			priceRows.AddRow(id, p)
		}
	}
	mock.ExpectQuery(`SELECT DISTINCT ON \(ingredient_id\)`).WillReturnRows(priceRows)
	mock.ExpectQuery(`SELECT \* FROM "recipe_line_items" ORDER BY recipe_id, position, id`).WillReturnRows(lines)
}

func lineColumns() []string {
	return []string{"id", "recipe_id", "ingredient_id", "sub_recipe_id", "quantity"}
}

func TestDashboard(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, mock := newService(t, now)
	svc.TopN = 1

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM ingredients\)`).
		WillReturnRows(sqlmock.NewRows([]string{"ingredients", "recipes", "active_menu_items", "unpriced_ingredients"}).
			AddRow(3, 3, 3, 0))

	mock.ExpectQuery(`ROW_NUMBER\(\) OVER`).
		WithArgs(false, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), true, 0).
		WillReturnRows(sqlmock.NewRows([]string{"ingredient_id", "name", "unit", "price", "date"}).
			AddRow(1, "Harina", "Kg", 107.0, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)).
			AddRow(1, "Harina", "Kg", 100.0, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)).
			AddRow(2, "Aceite", "L", 50.0, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)))

	mock.ExpectQuery(`FROM menu_items AS m`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipe_id", "section_id", "name", "sale_price", "target_margin", "active", "recipe_name", "section_name", "section_position"}).
			AddRow(1, 100, 1, "Milanesa", 100.0, 0.75, true, "Milanesa", "Principales", 1).
			AddRow(2, 200, 1, "Bife", 100.0, 0.75, true, "Bife", "Principales", 1).
			AddRow(3, 300, 2, "Flan", 100.0, 0.75, true, "Flan", "Postres", 2))

	expectCostBook(mock, map[uint]float64{1: 10, 2: 50, 3: 30},
		sqlmock.NewRows(lineColumns()).
			AddRow(1, 100, 1, nil, 2.0).
			AddRow(2, 200, 2, nil, 1.0).
			AddRow(3, 300, 3, nil, 1.0))

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), d.Ingredients)
	assert.Equal(t, 2, d.MenuItemsWithAlert)
	require.Len(t, d.Variations, 1)
	assert.Equal(t, uint(1), d.Variations[0].IngredientID)
	assert.Equal(t, 7.0, d.Variations[0].Percent)

	require.Len(t, d.Alerts, 1)
	assert.Equal(t, "Bife", d.Alerts[0].Name)
	assert.Equal(t, margin.StatusCritical, d.Alerts[0].Status)
	assert.Equal(t, now, d.GeneratedAt)
}

func TestRecipeDetail(t *testing.T) {
	svc, mock := newService(t, time.Now())

	mock.ExpectQuery(`SELECT \* FROM "recipes" WHERE "recipes"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_sub_recipe"}).AddRow(100, "Ñoquis con salsa", false))
	mock.ExpectQuery(`FROM recipe_line_items AS l`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipe_id", "ingredient_id", "sub_recipe_id", "quantity", "position", "ingredient_name", "ingredient_unit", "sub_recipe_name"}).
			AddRow(1, 100, 1, nil, 2.0, 0, "Papa", "Kg", nil).
			AddRow(2, 100, nil, 300, 1.0, 1, nil, nil, "Salsa fileto").
			AddRow(5, 100, 9, nil, 1.0, 2, "Azafrán", "g", nil))
	expectCostBook(mock, map[uint]float64{1: 10, 2: 4},
		sqlmock.NewRows(lineColumns()).
			AddRow(1, 100, 1, nil, 2.0).
			AddRow(2, 100, nil, 300, 1.0).
			AddRow(5, 100, 9, nil, 1.0).
			AddRow(3, 300, 2, nil, 1.0))

	d, err := svc.RecipeDetail(ctx, 100)
	require.NoError(t, err)

	assert.InDelta(t, 24.0, d.Cost, 1e-9)
	require.Len(t, d.Lines, 3)

	assert.Equal(t, "Papa", d.Lines[0].Name)
	assert.InDelta(t, 20.0, d.Lines[0].Total, 1e-9)
	assert.True(t, d.Lines[0].HasPrice)

	assert.Equal(t, "Salsa fileto", d.Lines[1].Name)
	assert.Equal(t, "porción", d.Lines[1].Unit)
	assert.InDelta(t, 4.0, d.Lines[1].UnitCost, 1e-9)

	assert.Equal(t, "Azafrán", d.Lines[2].Name)
	assert.False(t, d.Lines[2].HasPrice)
	assert.Zero(t, d.Lines[2].Total)
}

func TestRecipeDetail_NotFound(t *testing.T) {
	svc, mock := newService(t, time.Now())

	mock.ExpectQuery(`SELECT \* FROM "recipes"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.RecipeDetail(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecipes(t *testing.T) {
	svc, mock := newService(t, time.Now())

	sub := true
	mock.ExpectQuery(`SELECT \* FROM "recipes" WHERE name ILIKE \$1 AND is_sub_recipe = \$2 ORDER BY is_sub_recipe, name`).
		WithArgs("%salsa%", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_sub_recipe"}).AddRow(300, "Salsa fileto", true))
	expectCostBook(mock, map[uint]float64{2: 4},
		sqlmock.NewRows(lineColumns()).
			AddRow(3, 300, 2, nil, 1.5).
			AddRow(4, 300, 7, nil, 1.0))

	rows, err := svc.Recipes(ctx, RecipeFilter{Search: "salsa", SubRecipe: &sub})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 6.0, rows[0].Cost, 1e-9)
	assert.Equal(t, 2, rows[0].LineCount)
}

func TestEvaluateMenu_SuggestsPriceOnlyWhenNotOK(t *testing.T) {
	book := svcBook(map[uint]float64{1: 20, 2: 50})
	rows := []storage.MenuRow{
		{MenuItem: models.MenuItem{ID: 1, RecipeID: 1, Name: "Empanada", SalePrice: 100, TargetMargin: 0.75}},
		{MenuItem: models.MenuItem{ID: 2, RecipeID: 2, Name: "Bife", SalePrice: 100, TargetMargin: 0.75}},
	}

	got := evaluateMenu(rows, book, margin.DefaultPolicy())
	require.Len(t, got, 2)
	assert.Equal(t, margin.StatusOK, got[0].Status)
	assert.Nil(t, got[0].SuggestedPrice)
	assert.Equal(t, margin.StatusCritical, got[1].Status)
	require.NotNil(t, got[1].SuggestedPrice)
	assert.InDelta(t, 200.0, *got[1].SuggestedPrice, 1e-9)
}

func TestSummarizeEvents(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2026, m, day, 0, 0, 0, 0, time.UTC) }
	events := []models.Event{
		{
			ID: 1, Date: d(time.March, 7), Client: "Club Social", Seller: "Ana", EventType: "Casamiento",
			Adults: 100, Minors: 10, Confirmed: true, Total: decimal.NewFromInt(1600000),
			Payments: []models.EventPayment{
				{Amount: decimal.NewFromInt(500000), Category: billing.CategoryDeposit},
				{Amount: decimal.NewFromInt(10000), Category: billing.CategoryInflationAdjustment},
			},
		},
		{
			ID: 2, Date: d(time.March, 21), Client: "Familia Pérez", Seller: "", EventType: "Cumpleaños",
			Adults: 40, Total: decimal.NewFromInt(400000),
		},
		{
			ID: 3, Date: d(time.July, 4), Client: "Empresa SA", Seller: "Ana", EventType: "Casamiento",
			Adults: 50, Confirmed: true, Total: decimal.NewFromInt(600000),
			Payments: []models.EventPayment{
				{Amount: decimal.NewFromInt(600000), Category: billing.CategoryRegular},
			},
		},
	}

	st := SummarizeEvents(2026, events)

	assert.Equal(t, 3, st.Events)
	assert.Equal(t, 2, st.Confirmed)
	assert.Equal(t, 200, st.Guests)
	assert.True(t, decimal.NewFromInt(2600000).Equal(st.Billed), "billed %s", st.Billed)
	assert.True(t, decimal.NewFromInt(1100000).Equal(st.Collected), "collected %s", st.Collected)
	assert.True(t, decimal.NewFromInt(1510000).Equal(st.Pending), "pending %s", st.Pending)
	assert.Equal(t, "866666.67", st.AveragePerEvent.StringFixed(2))

	march := st.ByMonth[2]
	assert.Equal(t, 2, march.Count)
	assert.Equal(t, 1, march.Confirmed)
	assert.Equal(t, 150, march.Guests)
	assert.Zero(t, st.ByMonth[0].Count)

	require.Len(t, st.BySeller, 2)
	assert.Equal(t, "Ana", st.BySeller[0].Key)
	assert.Equal(t, 2, st.BySeller[0].Count)
	assert.Equal(t, "Sin asignar", st.BySeller[1].Key)

	require.Len(t, st.ByType, 2)
	assert.Equal(t, "Casamiento", st.ByType[0].Key)
}

func TestSummarizeEvents_Empty(t *testing.T) {
	st := SummarizeEvents(2026, nil)
	assert.Zero(t, st.Events)
	assert.True(t, st.AveragePerEvent.IsZero())
	assert.Len(t, st.ByMonth, 12)
	assert.Empty(t, st.BySeller)
}

func TestUpcomingConfirmed(t *testing.T) {
	events := make([]models.Event, 0, 14)
	for i := 1; i <= 14; i++ {
		events = append(events, models.Event{ID: uint(i), Confirmed: i != 2, Total: decimal.NewFromInt(1000)})
	}

	got := upcomingConfirmed(events)
	require.Len(t, got, upcomingLimit)
	assert.Equal(t, uint(1), got[0].ID)
	assert.Equal(t, uint(3), got[1].ID)
	assert.True(t, decimal.NewFromInt(1000).Equal(got[0].Pending))
}

// svcBook prices ingredient n at costs[n] and gives recipe n one line of it.
func svcBook(costs map[uint]float64) *costing.Calculator {
	book := costing.NewBook()
	for id, c := range costs {
		book.SetPrice(id, c)
		book.AddLine(id, costing.LineItem{ID: id, Ref: costing.IngredientRef{IngredientID: id}, Quantity: 1})
	}
	return book.Calculator()
}
