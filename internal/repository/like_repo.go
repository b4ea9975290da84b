package repository

import (
	"context"
	"database/sql"

	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/models"
)

// likeRepo is the concrete implementation of LikeRepository
type likeRepo struct {
	db *database.DB
}

// NewLikeRepo creates a new like repository
func NewLikeRepo(db *database.DB) LikeRepository {
	return &likeRepo{db: db}
}

// Toggle removes an existing like or adds a missing one. The insert ignores a
// concurrent duplicate, so two racing toggles by the same user settle on liked
// and never produce a second row.
func (r *likeRepo) Toggle(ctx context.Context, userID, articleID string) (bool, int, error) {
	var liked bool
	var count int

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = $1 AND article_id = $2`, userID, articleID)
		if err != nil {
			return err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if removed == 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO likes (user_id, article_id, created_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT ON CONSTRAINT likes_user_article_key DO NOTHING
			`, userID, articleID)
			if database.IsPQError(err, database.ForeignKeyViolation, "") {
				return models.ErrArticleNotFound
			}
			if err != nil {
				return err
			}
			liked = true
		}

		return tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM likes WHERE article_id = $1`, articleID).Scan(&count)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// Exists checks whether the user likes the article
func (r *likeRepo) Exists(ctx context.Context, userID, articleID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND article_id = $2)", userID, articleID,
	).Scan(&exists)
	return exists, err
}

// Count returns the number of likes on an article
func (r *likeRepo) Count(ctx context.Context, articleID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM likes WHERE article_id = $1", articleID).Scan(&count)
	return count, err
}
