package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/models"
)

const articleColumns = `
	a.id, a.title, a.body, a.summary, a.category, a.tags, a.author_id, u.username,
	a.is_private, a.require_vip, a.password, a.view_count, a.created_at, a.updated_at
`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

// Create inserts a new article
func (r *articleRepo) Create(ctx context.Context, article *models.Article) error {
	tagsJSON, err := json.Marshal(article.Tags)
	if err != nil {
		return err
	}
	if article.Tags == nil {
		tagsJSON = []byte("[]")
	}

	query := `
		INSERT INTO articles (id, title, body, summary, category, tags, author_id,
			is_private, require_vip, password, view_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.ExecContext(ctx, query,
		article.ID, article.Title, article.Body, article.Summary, article.Category, string(tagsJSON),
		article.AuthorID, article.IsPrivate, article.RequireVIP, article.Password, article.ViewCount,
		article.CreatedAt, article.UpdatedAt,
	)
	if database.IsPQError(err, database.ForeignKeyViolation, "") {
		return models.ErrUserNotFound
	}
	return err
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a JOIN users u ON u.id = a.author_id WHERE a.id = $1`

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

// Exists checks if an article with the given ID exists
func (r *articleRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM articles WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// IncrementViewCount adds one view in a single statement so concurrent
// readers never lose an update
func (r *articleRepo) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, models.ErrArticleNotFound
	}
	return count, err
}

// ListPublic returns one page of public articles, newest first, and the total match count
func (r *articleRepo) ListPublic(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error) {
	where := []string{"a.is_private = FALSE"}
	var args []interface{}

	if filter.Keyword != "" {
		args = append(args, "%"+escapeLike(filter.Keyword)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(a.title ILIKE $%d OR a.body ILIKE $%d OR a.tags::text ILIKE $%d)", n, n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		where = append(where, fmt.Sprintf("a.author_id = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM articles a JOIN users u ON u.id = a.author_id WHERE %s
		ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d`,
		articleColumns, clause, len(args)-1, len(args))

	articles, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Popular returns the most viewed public articles
func (r *articleRepo) Popular(ctx context.Context, limit int) ([]*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a JOIN users u ON u.id = a.author_id
		WHERE a.is_private = FALSE ORDER BY a.view_count DESC, a.created_at DESC LIMIT $1`
	return r.query(ctx, query, limit)
}

// Categories counts public articles per category
func (r *articleRepo) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM articles
		WHERE is_private = FALSE AND category <> ''
		GROUP BY category ORDER BY COUNT(*) DESC, category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.CategoryCount
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Count returns the total number of articles
func (r *articleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

func (r *articleRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var article models.Article
	var tagsJSON []byte

	err := row.Scan(
		&article.ID, &article.Title, &article.Body, &article.Summary, &article.Category, &tagsJSON,
		&article.AuthorID, &article.AuthorName, &article.IsPrivate, &article.RequireVIP,
		&article.Password, &article.ViewCount, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tagsJSON, &article.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for article %s: %w", article.ID, err)
	}
	article.TagsJSON = string(tagsJSON)
	article.HasPassword = article.Password != ""
	return &article, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
