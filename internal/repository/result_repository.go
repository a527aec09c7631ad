package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
)

// ResultRepository handles durable answers and results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// ExistingResult retrieves the result for a user-test pair.
func (r *ResultRepository) ExistingResult(ctx context.Context, userID, testID int64) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, test_id, score, total_questions, percentage,
		        started_at, completed_at, time_taken
		 FROM results
		 WHERE user_id = $1 AND test_id = $2`, userID, testID,
	).Scan(&res.ID, &res.UserID, &res.TestID, &res.Score, &res.TotalQuestions, &res.Percentage,
		&res.StartedAt, &res.CompletedAt, &res.TimeTakenSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// InsertResult inserts res unless the pair already has a result, in which
// case the stored one is returned with created=false.
func (r *ResultRepository) InsertResult(ctx context.Context, res *model.Result) (*model.Result, bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO results (user_id, test_id, score, total_questions, percentage,
		                      started_at, completed_at, time_taken)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, test_id) DO NOTHING
		 RETURNING id`,
		res.UserID, res.TestID, res.Score, res.TotalQuestions, res.Percentage,
		res.StartedAt, res.CompletedAt, res.TimeTakenSeconds,
	).Scan(&res.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race to another finalize.
		existing, err := r.ExistingResult(ctx, res.UserID, res.TestID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// UpsertAnswer writes an answer, last write wins. The write is refused
// once the pair has a result.
func (r *ResultRepository) UpsertAnswer(ctx context.Context, a *model.Answer) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_answers (user_id, test_id, question_id, selected_answer, is_correct, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6
		 WHERE NOT EXISTS (SELECT 1 FROM results WHERE user_id = $1 AND test_id = $2)
		 ON CONFLICT (user_id, test_id, question_id) DO UPDATE
		 SET selected_answer = EXCLUDED.selected_answer,
		     is_correct = EXCLUDED.is_correct,
		     updated_at = EXCLUDED.updated_at`,
		a.UserID, a.TestID, a.QuestionID, a.SelectedAnswer, a.IsCorrect, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrAlreadyCompleted
	}
	return nil
}

// AnswersFor retrieves every answer of a user for a test.
func (r *ResultRepository) AnswersFor(ctx context.Context, userID, testID int64) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, test_id, question_id, selected_answer, is_correct, updated_at
		 FROM user_answers
		 WHERE user_id = $1 AND test_id = $2`, userID, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.UserID, &a.TestID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// AnswerFor retrieves a single answer.
func (r *ResultRepository) AnswerFor(ctx context.Context, userID, testID, questionID int64) (*model.Answer, error) {
	a := &model.Answer{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, test_id, question_id, selected_answer, is_correct, updated_at
		 FROM user_answers
		 WHERE user_id = $1 AND test_id = $2 AND question_id = $3`, userID, testID, questionID,
	).Scan(&a.UserID, &a.TestID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ResultDetail retrieves a result joined with its test and category names.
func (r *ResultRepository) ResultDetail(ctx context.Context, userID, testID int64) (*model.ResultDetail, error) {
	d := &model.ResultDetail{}
	err := r.pool.QueryRow(ctx,
		`SELECT r.id, r.user_id, r.test_id, r.score, r.total_questions, r.percentage,
		        r.started_at, r.completed_at, r.time_taken, t.test_name, c.name
		 FROM results r
		 JOIN tests t ON t.id = r.test_id
		 JOIN categories c ON c.id = t.category_id
		 WHERE r.user_id = $1 AND r.test_id = $2`, userID, testID,
	).Scan(&d.ID, &d.UserID, &d.TestID, &d.Score, &d.TotalQuestions, &d.Percentage,
		&d.StartedAt, &d.CompletedAt, &d.TimeTakenSeconds, &d.TestName, &d.CategoryName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
