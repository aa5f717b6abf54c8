package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/jackc/pgx/v5"
)

var ErrInvalidCapacity = errors.New("capacity must be >= 0")

// TableStore defines the DB methods needed for the table view.
// Satisfied by *database.Queries.
type TableStore interface {
	ListTables(ctx context.Context, businessID int64) ([]database.Table, error)
	ListOpenTableNumbers(ctx context.Context, businessID int64) ([]int32, error)
	CreateTableIfAbsent(ctx context.Context, arg database.CreateTableIfAbsentParams) (database.Table, error)
	GetTableByNumber(ctx context.Context, arg database.GetTableByNumberParams) (database.Table, error)
}

// TableView is a table with its occupancy derived from open orders.
type TableView struct {
	ID          int64  `json:"id"`
	TableNumber int32  `json:"table_number"`
	Capacity    int32  `json:"capacity"`
	Status      string `json:"status"`
}

type TableService struct {
	store TableStore
}

func NewTableService(store TableStore) *TableService {
	return &TableService{store: store}
}

// Availability lists the business's tables; a table is Booked while any
// non-Completed order references its number.
func (s *TableService) Availability(ctx context.Context, businessID int64) ([]TableView, error) {
	tables, err := s.store.ListTables(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	open, err := s.store.ListOpenTableNumbers(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list open tables: %w", err)
	}
	return TableAvailability(tables, open), nil
}

// TableAvailability joins tables with the numbers of tables that have open
// orders.
func TableAvailability(tables []database.Table, openNumbers []int32) []TableView {
	booked := make(map[int32]struct{}, len(openNumbers))
	for _, n := range openNumbers {
		booked[n] = struct{}{}
	}
	out := make([]TableView, 0, len(tables))
	for _, t := range tables {
		status := enum.TableStatusAvailable
		if _, ok := booked[t.TableNumber]; ok {
			status = enum.TableStatusBooked
		}
		out = append(out, TableView{
			ID:          t.ID,
			TableNumber: t.TableNumber,
			Capacity:    t.Capacity,
			Status:      status,
		})
	}
	return out
}

// Register adds a table unless the number is already registered for the
// business, in which case the existing row is returned with created=false.
func (s *TableService) Register(ctx context.Context, businessID int64, number, capacity int32) (database.Table, bool, error) {
	if number <= 0 {
		return database.Table{}, false, ErrInvalidTableNumber
	}
	if capacity < 0 {
		return database.Table{}, false, ErrInvalidCapacity
	}
	t, err := s.store.CreateTableIfAbsent(ctx, database.CreateTableIfAbsentParams{
		BusinessID:  businessID,
		TableNumber: number,
		Capacity:    capacity,
	})
	if err == nil {
		return t, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Table{}, false, fmt.Errorf("create table: %w", err)
	}
	existing, err := s.store.GetTableByNumber(ctx, database.GetTableByNumberParams{
		BusinessID:  businessID,
		TableNumber: number,
	})
	if err != nil {
		return database.Table{}, false, fmt.Errorf("get table: %w", err)
	}
	return existing, false, nil
}
