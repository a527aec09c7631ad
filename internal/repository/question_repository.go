package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/model"
)

// QuestionRepository reads the question bank.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ActiveQuestions retrieves the active pool of a category, ordered by ID.
func (r *QuestionRepository) ActiveQuestions(ctx context.Context, categoryID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, question_text, question_image, question_audio,
		        answer_options, correct_answer, difficulty_level, is_active
		 FROM questions
		 WHERE category_id = $1 AND is_active
		 ORDER BY id`, categoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.QuestionText, &q.QuestionImage, &q.QuestionAudio,
			&q.AnswerOptions, &q.CorrectAnswer, &q.DifficultyLevel, &q.IsActive); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionByID retrieves a question regardless of its active flag, so a
// question deactivated mid-attempt still renders for that attempt.
func (r *QuestionRepository) QuestionByID(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, category_id, question_text, question_image, question_audio,
		        answer_options, correct_answer, difficulty_level, is_active
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.CategoryID, &q.QuestionText, &q.QuestionImage, &q.QuestionAudio,
		&q.AnswerOptions, &q.CorrectAnswer, &q.DifficultyLevel, &q.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}
