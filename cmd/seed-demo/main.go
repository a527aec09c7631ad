// Command seed-demo loads a demo category, question pool and test for local
// runs, and can mint a participant token registered as the active login.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/auth"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/database"
	"github.com/stemsi/exstem-session/internal/logger"
)

func main() {
	var (
		questions = flag.Int("questions", 20, "Questions to create in the demo category")
		perTest   = flag.Int("per-test", 10, "Questions drawn per attempt")
		duration  = flag.Int("duration", 30, "Attempt duration in minutes")
		userID    = flag.Int64("user", 0, "If set, print a participant token for this user ID")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Begin failed")
	}
	defer tx.Rollback(ctx)

	var categoryID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ('Demo', 'Seeded demo questions')
		 ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		 RETURNING id`,
	).Scan(&categoryID)
	if err != nil {
		log.Fatal().Err(err).Msg("Create category failed")
	}

	options, _ := json.Marshal([]string{"A", "B", "C", "D"})
	batch := &pgx.Batch{}
	for i := 1; i <= *questions; i++ {
		batch.Queue(
			`INSERT INTO questions (category_id, question_text, answer_options, correct_answer, difficulty_level)
			 VALUES ($1, $2, $3, $4, $5)`,
			categoryID, fmt.Sprintf("Demo question %d", i), options, string(rune('A'+i%4)), difficulty(i),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Fatal().Err(err).Msg("Create questions failed")
	}

	now := time.Now()
	var testID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO tests (test_name, description, start_time, end_time, duration, category_id, question_count, randomize_questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 RETURNING id`,
		"Demo test", "Seeded for local runs", now.Add(-time.Minute), now.Add(7*24*time.Hour),
		*duration, categoryID, *perTest,
	).Scan(&testID)
	if err != nil {
		log.Fatal().Err(err).Msg("Create test failed")
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("Commit failed")
	}
	log.Info().Int64("category_id", categoryID).Int64("test_id", testID).Int("questions", *questions).Msg("Demo data seeded")

	if *userID > 0 {
		token, err := participantToken(ctx, cfg, log, *userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Mint token failed")
		}
		fmt.Println(token)
	}
}

func difficulty(i int) string {
	switch i % 3 {
	case 0:
		return "easy"
	case 1:
		return "medium"
	default:
		return "hard"
	}
}

// participantToken signs a token the way the login service does and
// registers its JTI as the user's active login.
func participantToken(ctx context.Context, cfg *config.Config, log zerolog.Logger, userID int64) (string, error) {
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return "", err
	}
	defer rdb.Close()

	jti := uuid.NewString()
	now := time.Now()
	ttl := 24 * time.Hour

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: auth.TokenTypeParticipant,
		UserID:    userID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := rdb.Set(ctx, config.CacheKey.UserLoginKey(userID), jti, ttl).Err(); err != nil {
		return "", fmt.Errorf("register login: %w", err)
	}
	return signed, nil
}
