// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sales implements the sales forecast action group: reading
// forecasted and measured sales of a customer and updating the forecast
// of a month.
package sales

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"retailagent/internal/action"
	"retailagent/internal/table"

	"github.com/cockroachdb/apd/v3"
	"go.uber.org/zap"
)

const (
	ParamCustomerID = "customer_id"
	ParamMonth      = "month"
	ParamYear       = "year"
	ParamSales      = "sales"

	KindForecasted = "forecasted"
	KindMeasured   = "measured"

	// DayLayout formats the sort key of a monthly record.
	DayLayout = "2006/01/02"
)

// Service answers the sales functions from one table keyed by customer and
// month.
type Service struct {
	table *table.Table
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of the current month.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service reading the current month from time.Now unless
// WithClock is given.
func New(t *table.Table, log *zap.Logger, opts ...Option) *Service {
	s := &Service{table: t, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Operations lists the functions of the action group.
func (s *Service) Operations() []action.Operation {
	return []action.Operation{
		{
			Name: "get_forecasted_sales",
			Run: func(ctx context.Context, id string, _ action.Args) string {
				return s.ForecastedSales(ctx, id)
			},
		},
		{
			Name: "get_historical_sales",
			Run: func(ctx context.Context, id string, _ action.Args) string {
				return s.HistoricalSales(ctx, id)
			},
		},
		{
			Name: "get_sales_statistics",
			Run: func(ctx context.Context, id string, _ action.Args) string {
				return s.Statistics(ctx, id)
			},
		},
		{
			Name:   "update_sales_forecast",
			Params: []string{ParamMonth, ParamYear, ParamSales},
			Run: func(ctx context.Context, id string, args action.Args) string {
				return s.UpdateForecast(ctx, id, args[ParamMonth], args[ParamYear], args[ParamSales])
			},
		},
	}
}

// ForecastedSales lists the forecasted records of the customer.
func (s *Service) ForecastedSales(ctx context.Context, customerID string) string {
	return s.read(ctx, table.Query{
		Partition: customerID,
		Filter:    &table.Filter{Name: "kind", Value: KindForecasted},
	})
}

// HistoricalSales lists the measured records of the customer.
func (s *Service) HistoricalSales(ctx context.Context, customerID string) string {
	return s.read(ctx, table.Query{
		Partition: customerID,
		Filter:    &table.Filter{Name: "kind", Value: KindMeasured},
	})
}

// Statistics returns the records of the customer for the current month.
func (s *Service) Statistics(ctx context.Context, customerID string) string {
	return s.read(ctx, table.Query{
		Partition: customerID,
		Sort:      MonthFloor(s.now()).Format(DayLayout),
	})
}

// UpdateForecast stores the forecast for the first day of month/year.
// Months before the current one are refused.
func (s *Service) UpdateForecast(ctx context.Context, customerID, month, year, sales string) string {
	target, msg := parseMonth(month, year, s.now().Location())
	if msg != "" {
		return msg
	}
	day := target.Format(DayLayout)
	if target.Before(MonthFloor(s.now())) {
		return fmt.Sprintf("You're trying to change a past date: %s for customer: %s, which is not allowed", day, customerID)
	}
	amount, ok := parseSales(sales)
	if !ok {
		return fmt.Sprintf("Invalid sales amount: %s for customer: %s", sales, customerID)
	}

	err := s.table.Put(ctx, table.Key{Partition: customerID, Sort: day}, map[string]any{
		"totalSales": amount,
		"kind":       KindForecasted,
	})
	if err != nil {
		s.log.Error("forecast update failed",
			zap.String("customer_id", customerID),
			zap.String("day", day),
			zap.Error(err),
		)
		return fmt.Sprintf("Error updating table: %s", s.table.Name())
	}
	return fmt.Sprintf("Sales forecast for: %s updated for customer: %s", day, customerID)
}

func (s *Service) read(ctx context.Context, q table.Query) string {
	records, err := s.table.Query(ctx, q)
	if err == nil {
		var out string
		if out, err = table.Render(records); err == nil {
			return out
		}
	}
	s.log.Error("query failed", zap.String("partition", q.Partition), zap.Error(err))
	return fmt.Sprintf("Error querying table: %s", s.table.Name())
}

// MonthFloor truncates t to midnight of the first day of its month.
func MonthFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func parseMonth(month, year string, loc *time.Location) (time.Time, string) {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, fmt.Sprintf("Invalid month: %s. Expected a number between 1 and 12", month)
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1 || y > 9999 {
		return time.Time{}, fmt.Sprintf("Invalid year: %s", year)
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, loc), ""
}

// parseSales keeps the amount as an exact decimal.
func parseSales(sales string) (table.Number, bool) {
	d, _, err := apd.NewFromString(strings.TrimSpace(sales))
	if err != nil || d.Form != apd.Finite {
		return "", false
	}
	return table.Number(d.Text('f')), true
}
