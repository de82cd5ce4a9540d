package store

import (
	"strings"
	"testing"
	"time"
)

func TestHistoryQuery(t *testing.T) {
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		q        HistoryQuery
		contains []string
		absent   []string
		args     int
	}{
		{
			name:     "no filters",
			q:        HistoryQuery{},
			contains: []string{"FROM apr_snapshots", "ORDER BY recorded_at DESC", "LIMIT 500"},
			absent:   []string{"WHERE"},
		},
		{
			name:     "protocol and since",
			q:        HistoryQuery{Protocol: "amnis", Since: since, Limit: 10},
			contains: []string{"protocol = $1", "recorded_at >= $2", "LIMIT 10"},
			args:     2,
		},
		{
			name:     "product type and capped limit",
			q:        HistoryQuery{ProductType: "staking", Limit: 1_000_000},
			contains: []string{"product_type = $1", "LIMIT 5000"},
			args:     1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := historyQuery(tt.q)
			if err != nil {
				t.Fatalf("historyQuery: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(sql, want) {
					t.Errorf("sql %q missing %q", sql, want)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(sql, bad) {
					t.Errorf("sql %q contains %q", sql, bad)
				}
			}
			if len(args) != tt.args {
				t.Errorf("len(args) = %d, want %d", len(args), tt.args)
			}
		})
	}
}

func TestInsertSnapshots(t *testing.T) {
	now := time.Now()
	rows := []Snapshot{
		{Protocol: "amnis", ProductType: "staking", Product: "stAPT", APR: 8.5, RecordedAt: now},
		{Protocol: "amnis", ProductType: BlendedProduct, APR: 8.65, RecordedAt: now},
	}
	sql, args, err := insertSnapshots(rows)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sql, "INSERT INTO apr_snapshots") {
		t.Errorf("sql = %q", sql)
	}
	if !strings.Contains(sql, "$14") || strings.Contains(sql, "?") {
		t.Errorf("sql should use 14 dollar placeholders: %q", sql)
	}
	if len(args) != 14 {
		t.Errorf("len(args) = %d, want 14", len(args))
	}
}
