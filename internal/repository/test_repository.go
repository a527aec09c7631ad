package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
)

const testColumns = `t.id, t.test_name, t.description, t.start_time, t.end_time,
	t.duration, t.category_id, c.name, t.question_count, t.randomize_questions,
	t.is_active, t.created_at, t.updated_at`

// TestRepository reads test definitions. Tests are authored elsewhere.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// TestByID retrieves a test with its category name.
func (r *TestRepository) TestByID(ctx context.Context, id int64) (*model.TestDefinition, error) {
	t, err := scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+`
		 FROM tests t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	return t, err
}

// ListAvailable retrieves active tests whose window contains now, newest
// first, with the total count for pagination.
func (r *TestRepository) ListAvailable(ctx context.Context, now time.Time, limit, offset int) ([]model.TestDefinition, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tests
		 WHERE is_active AND start_time <= $1 AND end_time > $1`, now,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+`
		 FROM tests t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.is_active AND t.start_time <= $1 AND t.end_time > $1
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT $2 OFFSET $3`, now, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.TestDefinition
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, *t)
	}
	return tests, total, rows.Err()
}

func scanTest(row pgx.Row) (*model.TestDefinition, error) {
	t := &model.TestDefinition{}
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.StartTime, &t.EndTime,
		&t.DurationMinutes, &t.CategoryID, &t.CategoryName, &t.QuestionCount, &t.RandomizeQuestions,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
