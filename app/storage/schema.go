package storage

import (
	"fmt"
	"strings"
)

// column maps one task field to its SQL column.
type column struct {
	Name       string
	Definition string
}

// table is an explicit description of a relational table.
type table struct {
	Name    string
	Columns []column
}

// tasksTable is the on-disk representation of a task.
var tasksTable = table{
	Name: "tasks",
	Columns: []column{
		{Name: "id", Definition: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "title", Definition: "TEXT NOT NULL"},
		{Name: "description", Definition: "TEXT NULL"},
		{Name: "completed", Definition: "BOOLEAN NOT NULL DEFAULT 0"},
	},
}

func (t table) createSQL(ifNotExists bool) string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, c.Name+" "+c.Definition)
	}
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (\n\t%s\n)", clause, t.Name, strings.Join(defs, ",\n\t"))
}

func (t table) dropSQL() string {
	return "DROP TABLE IF EXISTS " + t.Name
}

// columnList returns the column names, skipping the ones in omit.
func (t table) columnList(omit ...string) string {
	names := make([]string, 0, len(t.Columns))
next:
	for _, c := range t.Columns {
		for _, o := range omit {
			if c.Name == o {
				continue next
			}
		}
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
