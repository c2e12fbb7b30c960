package storage

import (
	"context"
	"fmt"

	"tasks-api/app/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore keeps tasks as (:Task) nodes. Integer ids come from a
// (:TaskSequence) counter node bumped inside the create transaction.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// neo4jConstraints keep task ids and the id counter unique. The counter
// constraint also makes concurrent MERGEs of the counter agree on one node.
var neo4jConstraints = []string{
	"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
	"CREATE CONSTRAINT task_sequence_name IF NOT EXISTS FOR (s:TaskSequence) REQUIRE s.name IS UNIQUE",
}

// OpenNeo4j wraps an already connected driver and makes sure the task
// constraints exist.
func OpenNeo4j(ctx context.Context, driver neo4j.DriverWithContext, database string) (*Neo4jStore, error) {
	s := &Neo4jStore{driver: driver, database: database}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates any missing task constraints.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// Schema statements cannot share a transaction with each other or with data writes.
	for _, stmt := range neo4jConstraints {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("neo4j: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Neo4jStore) Reset(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (n) WHERE n:Task OR n:TaskSequence DETACH DELETE n", nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("neo4j: clear tasks: %w", err)
	}

	return s.EnsureSchema(ctx)
}

func (s *Neo4jStore) Create(ctx context.Context, task models.TaskAdd) (int64, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	var description any
	if task.Description != nil {
		description = *task.Description
	}

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MERGE (seq:TaskSequence {name: 'tasks'}) "+
				"ON CREATE SET seq.next = 0 "+
				"SET seq.next = seq.next + 1 "+
				"CREATE (t:Task {id: seq.next, title: $title, description: $description, completed: $completed}) "+
				"RETURN t.id AS id",
			map[string]any{
				"title":       task.Title,
				"description": description,
				"completed":   task.Completed,
			},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _ := record.Get("id")
		return id, nil
	})
	if err != nil {
		return 0, fmt.Errorf("neo4j: create task: %w", err)
	}

	id, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("neo4j: create task: unexpected id type %T", result)
	}
	return id, nil
}

func (s *Neo4jStore) Complete(ctx context.Context, id int64) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	found, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) SET t.completed = true RETURN t.id",
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}
		hit := res.Next(ctx)
		if err := res.Err(); err != nil {
			return nil, err
		}
		return hit, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j: complete task %d: %w", id, err)
	}
	if hit, _ := found.(bool); !hit {
		return fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	return nil
}

func (s *Neo4jStore) Delete(ctx context.Context, id int64) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) DETACH DELETE t",
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("neo4j: delete task %d: %w", id, err)
	}
	return nil
}

func (s *Neo4jStore) List(ctx context.Context) ([]models.Task, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task) "+
				"RETURN t.id AS id, t.title AS title, t.description AS description, t.completed AS completed "+
				"ORDER BY t.id",
			nil,
		)
		if err != nil {
			return nil, err
		}

		tasks := []models.Task{}
		for res.Next(ctx) {
			task, err := taskFromRecord(res.Record())
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: list tasks: %w", err)
	}
	return result.([]models.Task), nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// taskFromRecord maps an id/title/description/completed row to a Task.
func taskFromRecord(record *neo4j.Record) (models.Task, error) {
	var task models.Task

	raw, _ := record.Get("id")
	id, ok := raw.(int64)
	if !ok {
		return task, fmt.Errorf("task id: unexpected type %T", raw)
	}
	task.ID = id

	raw, _ = record.Get("title")
	title, ok := raw.(string)
	if !ok {
		return task, fmt.Errorf("task %d title: unexpected type %T", id, raw)
	}
	task.Title = title

	if raw, _ = record.Get("description"); raw != nil {
		description, ok := raw.(string)
		if !ok {
			return task, fmt.Errorf("task %d description: unexpected type %T", id, raw)
		}
		task.Description = &description
	}

	// A missing completed property reads as false.
	if raw, _ = record.Get("completed"); raw != nil {
		completed, ok := raw.(bool)
		if !ok {
			return task, fmt.Errorf("task %d completed: unexpected type %T", id, raw)
		}
		task.Completed = completed
	}
	return task, nil
}
