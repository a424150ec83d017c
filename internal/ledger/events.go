package ledger

import (
	"context"
	"sort"
	"time"

	"tero-backend/internal/billing"
	"tero-backend/internal/models"

	"github.com/shopspring/decimal"
)

const (
	upcomingHorizon = 30 * 24 * time.Hour
	upcomingLimit   = 10
)

// EventBalance derives the read-time balance of one event from its payments.
func EventBalance(e models.Event) billing.Balance {
	payments := make([]billing.Payment, 0, len(e.Payments))
	for _, p := range e.Payments {
		payments = append(payments, p.Billing())
	}
	return billing.Summarize(e.Total, payments)
}

type GroupStat struct {
	Key    string          `json:"key"`
	Count  int             `json:"count"`
	Billed decimal.Decimal `json:"billed"`
}

type MonthStat struct {
	Month     int             `json:"month"`
	Count     int             `json:"count"`
	Confirmed int             `json:"confirmed"`
	Billed    decimal.Decimal `json:"billed"`
	Guests    int             `json:"guests"`
}

type UpcomingEvent struct {
	ID     uint      `json:"id"`
	Date   time.Time `json:"date"`
	Client string    `json:"client"`
	Guests int       `json:"guests"`
	billing.Balance
}

type EventStats struct {
	Year            int             `json:"year"`
	Events          int             `json:"events"`
	Confirmed       int             `json:"confirmed"`
	Billed          decimal.Decimal `json:"billed"`
	Guests          int             `json:"guests"`
	AveragePerEvent decimal.Decimal `json:"average_per_event"`
	Collected       decimal.Decimal `json:"collected"`
	Pending         decimal.Decimal `json:"pending"`
	ByMonth         []MonthStat     `json:"by_month"`
	BySeller        []GroupStat     `json:"by_seller"`
	ByType          []GroupStat     `json:"by_type"`
	Upcoming        []UpcomingEvent `json:"upcoming"`
}

// EventStats summarizes one calendar year of events. Upcoming lists the
// confirmed events of the next 30 days regardless of year.
func (s *Service) EventStats(ctx context.Context, year int) (EventStats, error) {
	now := s.Now()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	events, err := s.Store.EventsBetween(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		return EventStats{}, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	upcoming, err := s.Store.EventsBetween(ctx, today, today.Add(upcomingHorizon+24*time.Hour))
	if err != nil {
		return EventStats{}, err
	}

	stats := SummarizeEvents(year, events)
	stats.Upcoming = upcomingConfirmed(upcoming)
	return stats, nil
}

// SummarizeEvents aggregates totals, balances and groupings over events.
func SummarizeEvents(year int, events []models.Event) EventStats {
	st := EventStats{
		Year:            year,
		Billed:          decimal.Zero,
		AveragePerEvent: decimal.Zero,
		Collected:       decimal.Zero,
		Pending:         decimal.Zero,
		ByMonth:         make([]MonthStat, 12),
		Upcoming:        []UpcomingEvent{},
	}
	for i := range st.ByMonth {
		st.ByMonth[i] = MonthStat{Month: i + 1, Billed: decimal.Zero}
	}

	sellers := map[string]*GroupStat{}
	types := map[string]*GroupStat{}

	for _, e := range events {
		guests := e.Adults + e.Minors
		bal := EventBalance(e)

		st.Events++
		st.Billed = st.Billed.Add(e.Total)
		st.Guests += guests
		st.Collected = st.Collected.Add(bal.Paid)
		st.Pending = st.Pending.Add(bal.Pending)
		if e.Confirmed {
			st.Confirmed++
		}

		m := &st.ByMonth[int(e.Date.Month())-1]
		m.Count++
		m.Billed = m.Billed.Add(e.Total)
		m.Guests += guests
		if e.Confirmed {
			m.Confirmed++
		}

		addGroup(sellers, groupKey(e.Seller), e.Total)
		addGroup(types, groupKey(e.EventType), e.Total)
	}

	if st.Events > 0 {
		st.AveragePerEvent = st.Billed.Div(decimal.NewFromInt(int64(st.Events))).Round(2)
	}
	st.BySeller = sortedGroups(sellers)
	st.ByType = sortedGroups(types)
	return st
}

func groupKey(v string) string {
	if v == "" {
		return "Sin asignar"
	}
	return v
}

func addGroup(m map[string]*GroupStat, key string, total decimal.Decimal) {
	g, ok := m[key]
	if !ok {
		g = &GroupStat{Key: key, Billed: decimal.Zero}
		m[key] = g
	}
	g.Count++
	g.Billed = g.Billed.Add(total)
}

// sortedGroups orders by billed amount descending, then key.
func sortedGroups(m map[string]*GroupStat) []GroupStat {
	out := make([]GroupStat, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Billed.Cmp(out[j].Billed); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func upcomingConfirmed(events []models.Event) []UpcomingEvent {
	out := []UpcomingEvent{}
	for _, e := range events {
		if !e.Confirmed {
			continue
		}
		out = append(out, UpcomingEvent{
			ID:      e.ID,
			Date:    e.Date,
			Client:  e.Client,
			Guests:  e.Adults + e.Minors,
			Balance: EventBalance(e),
		})
		if len(out) == upcomingLimit {
			break
		}
	}
	return out
}
