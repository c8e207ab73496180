// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package storeops implements the store operations action group.
package storeops

import (
	"context"
	"fmt"

	"retailagent/internal/action"
	"retailagent/internal/table"

	"go.uber.org/zap"
)

const (
	ParamStoreID      = "store_id"
	ParamDepartmentID = "department_id"
	ParamStaffing     = "staffing"
)

// Service answers the store functions from one table keyed by store and
// department.
type Service struct {
	table *table.Table
	log   *zap.Logger
}

// New returns a Service over t.
func New(t *table.Table, log *zap.Logger) *Service {
	return &Service{table: t, log: log}
}

// Operations lists the functions of the action group.
func (s *Service) Operations() []action.Operation {
	return []action.Operation{
		{
			Name: "detect_peak_traffic",
			Run: func(ctx context.Context, id string, _ action.Args) string {
				return s.PeakTraffic(ctx, id)
			},
		},
		{
			Name: "detect_inefficient_processes",
			Run: func(ctx context.Context, id string, _ action.Args) string {
				return s.InefficientProcesses(ctx, id)
			},
		},
		{
			Name:   "redistribute_staffing",
			Params: []string{ParamDepartmentID, ParamStaffing},
			Run: func(ctx context.Context, id string, args action.Args) string {
				return s.RedistributeStaffing(ctx, id, args[ParamDepartmentID], args[ParamStaffing])
			},
		},
	}
}

// PeakTraffic lists the departments of a store flagged as peak.
func (s *Service) PeakTraffic(ctx context.Context, storeID string) string {
	return s.read(ctx, storeID, "peak", "True")
}

// InefficientProcesses lists the processes of a store flagged non-essential.
func (s *Service) InefficientProcesses(ctx context.Context, storeID string) string {
	return s.read(ctx, storeID, "essential", "False")
}

// RedistributeStaffing sets the staffing level of one department. The level
// is stored as received.
func (s *Service) RedistributeStaffing(ctx context.Context, storeID, departmentID, staffing string) string {
	key := table.Key{Partition: storeID, Sort: departmentID}
	if err := s.table.UpdateField(ctx, key, ParamStaffing, staffing); err != nil {
		s.log.Error("staffing update failed",
			zap.String("store_id", storeID),
			zap.String("department_id", departmentID),
			zap.Error(err),
		)
		return fmt.Sprintf("Error updating table: %s", s.table.Name())
	}
	return fmt.Sprintf("Department %s has been updated. New staffing level: %s", departmentID, staffing)
}

func (s *Service) read(ctx context.Context, storeID, flag, value string) string {
	records, err := s.table.Query(ctx, table.Query{
		Partition: storeID,
		Filter:    &table.Filter{Name: flag, Value: value},
	})
	if err != nil {
		s.log.Error("query failed", zap.String("store_id", storeID), zap.String("flag", flag), zap.Error(err))
		return fmt.Sprintf("Error querying table: %s", s.table.Name())
	}

	out, err := table.Render(records)
	if err != nil {
		s.log.Error("render failed", zap.String("store_id", storeID), zap.Error(err))
		return fmt.Sprintf("Error querying table: %s", s.table.Name())
	}
	return out
}
