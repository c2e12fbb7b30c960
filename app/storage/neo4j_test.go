package storage

import (
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func record(id, title, description, completed any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"id", "title", "description", "completed"},
		Values: []any{id, title, description, completed},
	}
}

func TestTaskFromRecord(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		task, err := taskFromRecord(record(int64(7), "A", "note", true))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if task.ID != 7 || task.Title != "A" || !task.Completed {
			t.Errorf("unexpected task: %+v", task)
		}
		if task.Description == nil || *task.Description != "note" {
			t.Errorf("description = %v, want note", task.Description)
		}
	})

	t.Run("null description and completed", func(t *testing.T) {
		task, err := taskFromRecord(record(int64(1), "A", nil, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if task.Description != nil {
			t.Error("description should be nil")
		}
		if task.Completed {
			t.Error("completed should be false")
		}
	})

	tests := []struct {
		name   string
		record *neo4j.Record
		want   string
	}{
		{"string id", record("1", "A", nil, false), "task id"},
		{"missing title", record(int64(1), nil, nil, false), "title"},
		{"numeric description", record(int64(1), "A", 3, false), "description"},
		{"string completed", record(int64(1), "A", nil, "yes"), "completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taskFromRecord(tt.record)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestNeo4jConstraints(t *testing.T) {
	want := map[string]string{
		"(t:Task)":         "t.id IS UNIQUE",
		"(s:TaskSequence)": "s.name IS UNIQUE",
	}
	for pattern, requirement := range want {
		found := false
		for _, stmt := range neo4jConstraints {
			if strings.Contains(stmt, pattern) && strings.Contains(stmt, requirement) {
				found = true
				if !strings.Contains(stmt, "IF NOT EXISTS") {
					t.Errorf("constraint must be idempotent: %s", stmt)
				}
			}
		}
		if !found {
			t.Errorf("no constraint on %s requiring %s", pattern, requirement)
		}
	}
}
