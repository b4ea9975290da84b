package repository

import (
	"context"

	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatar string) error
	Count(ctx context.Context) (int, error)
}

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	Exists(ctx context.Context, id string) (bool, error)
	// IncrementViewCount adds one view atomically and returns the new count
	IncrementViewCount(ctx context.Context, id string) (int64, error)
	ListPublic(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error)
	Popular(ctx context.Context, limit int) ([]*models.Article, error)
	Categories(ctx context.Context) ([]models.CategoryCount, error)
	Count(ctx context.Context) (int, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListRoots returns comments without a parent, newest first
	ListRoots(ctx context.Context, articleID string) ([]*models.Comment, error)
	// ListByArticle returns every comment on the article, newest first
	ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error)
	Count(ctx context.Context) (int, error)
}

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	// Toggle removes the like if present, otherwise adds it. It reports the
	// resulting state and the article's like count.
	Toggle(ctx context.Context, userID, articleID string) (bool, int, error)
	Exists(ctx context.Context, userID, articleID string) (bool, error)
	Count(ctx context.Context, articleID string) (int, error)
}

// LedgerFunc mutates a locked account and returns the entry to append. The
// account's Balance and IsVIP are persisted as left by the function.
type LedgerFunc func(acct *models.Account) (*models.LedgerEntry, error)

// WalletRepository defines the interface for wallet data operations
type WalletRepository interface {
	// Apply runs fn against the user's account under a row lock and persists
	// the balance, VIP flag and ledger entry in one transaction.
	Apply(ctx context.Context, userID string, fn LedgerFunc) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)
	StreamEntries(ctx context.Context, userID string, callback func(*models.LedgerEntry) error) error
}

// StatsRepository defines the interface for network sample storage
type StatsRepository interface {
	Insert(ctx context.Context, snapshot *models.NetworkSnapshot) error
	Recent(ctx context.Context, limit int) ([]*models.NetworkSnapshot, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User    UserRepository
	Article ArticleRepository
	Comment CommentRepository
	Like    LikeRepository
	Wallet  WalletRepository
	Stats   StatsRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepo(db),
		Article: NewArticleRepo(db),
		Comment: NewCommentRepo(db),
		Like:    NewLikeRepo(db),
		Wallet:  NewWalletRepo(db),
		Stats:   NewStatsRepo(db),
	}
}
