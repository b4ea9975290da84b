package repository

import (
	"context"
	"database/sql"

	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/models"
)

const commentColumns = `c.id, c.article_id, c.user_id, u.username, c.parent_id, c.body, c.created_at`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, article_id, user_id, parent_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.ArticleID, comment.UserID, comment.ParentID, comment.Body, comment.CreatedAt,
	)
	if database.IsPQError(err, database.ForeignKeyViolation, "") {
		return models.ErrArticleNotFound
	}
	return err
}

// GetByID retrieves a comment by ID
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c JOIN users u ON u.id = c.user_id WHERE c.id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListRoots returns the article's root comments, newest first
func (r *commentRepo) ListRoots(ctx context.Context, articleID string) ([]*models.Comment, error) {
	return r.list(ctx, `SELECT `+commentColumns+` FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.article_id = $1 AND c.parent_id IS NULL
		ORDER BY c.created_at DESC, c.id DESC`, articleID)
}

// ListByArticle returns every comment on the article, newest first
func (r *commentRepo) ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	return r.list(ctx, `SELECT `+commentColumns+` FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.article_id = $1
		ORDER BY c.created_at DESC, c.id DESC`, articleID)
}

// Count returns the total number of comments
func (r *commentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}

func (r *commentRepo) list(ctx context.Context, query, articleID string) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var comment models.Comment
	var parentID sql.NullString

	err := row.Scan(
		&comment.ID, &comment.ArticleID, &comment.UserID, &comment.AuthorName,
		&parentID, &comment.Body, &comment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		comment.ParentID = &parentID.String
	}
	return &comment, nil
}
