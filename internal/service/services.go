package service

import (
	"context"
	"io"
	"net/http"

	"github.com/blog-content-api/internal/auth"
	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/gate"
	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/monitor"
	"github.com/blog-content-api/internal/repository"
	"github.com/blog-content-api/internal/upload"
	"github.com/blog-content-api/internal/validation"
	"github.com/rs/zerolog"
)

// IdentityService defines the interface for account operations
type IdentityService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error)
	ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest) error
	SetAvatar(ctx context.Context, userID, reference string) (*models.User, error)
	UploadAvatar(ctx context.Context, userID, filename string, src io.Reader) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	Profile(ctx context.Context, username string) (*models.Profile, error)
}

// ArticleView is the result of opening an article. On a denial only the
// teaser is filled in and nothing was recorded.
type ArticleView struct {
	Decision    gate.Decision         `json:"decision"`
	Remediation gate.Remediation      `json:"remediation,omitempty"`
	Article     *models.Article       `json:"article,omitempty"`
	Teaser      *models.ArticleTeaser `json:"teaser,omitempty"`
	LikeCount   int                   `json:"like_count"`
	Liked       bool                  `json:"liked"`
	Comments    []*models.Comment     `json:"comments"`
}

// ContentService defines the interface for articles, comments and likes
type ContentService interface {
	CreateArticle(ctx context.Context, authorID string, req *models.CreateArticleRequest) (*models.Article, error)
	ViewArticle(ctx context.Context, articleID, viewerID, password string) (*ArticleView, error)
	ListComments(ctx context.Context, articleID, viewerID, password string, view models.CommentView) ([]*models.Comment, error)
	AddComment(ctx context.Context, articleID, userID string, req *models.AddCommentRequest) (*models.Comment, error)
	ToggleLike(ctx context.Context, userID, articleID string) (*models.LikeResult, error)
	LikeCount(ctx context.Context, articleID string) (int, error)
	HasLiked(ctx context.Context, userID, articleID string) (bool, error)
	ListPublic(ctx context.Context, keyword, category string, page, perPage int) (*models.ArticlePage, error)
	Popular(ctx context.Context) ([]*models.Article, error)
	Categories(ctx context.Context) ([]models.CategoryCount, error)
	Counts(ctx context.Context) (*models.Counts, error)
}

// WalletService defines the interface for coin balance operations
type WalletService interface {
	TopUp(ctx context.Context, userID string, req *models.TopUpRequest) (*models.LedgerEntry, error)
	PurchaseVIP(ctx context.Context, userID string) (*models.LedgerEntry, error)
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	Ledger(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)
	StreamLedger(ctx context.Context, w http.ResponseWriter, userID, format string) error
}

// StatsService defines the interface for the network monitor
type StatsService interface {
	StartSampler(ctx context.Context)
	StopSampler()
	Sample(ctx context.Context) (*models.NetworkSnapshot, error)
	Current(ctx context.Context) (*models.NetworkSnapshot, error)
	History(ctx context.Context) ([]*models.NetworkSnapshot, error)
}

// Services holds all service interfaces
type Services struct {
	Identity IdentityService
	Content  ContentService
	Wallet   WalletService
	Stats    StatsService
	Tokens   *auth.TokenIssuer
}

// NewServices creates all services
func NewServices(
	repos *repository.Repositories,
	cfg *config.Config,
	sink monitor.Sink,
	avatars *upload.AvatarStore,
	log zerolog.Logger,
) *Services {
	validator := validation.NewValidator()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	return &Services{
		Identity: newIdentityService(repos, validator, hasher, tokens, avatars, log),
		Content:  newContentService(repos, validator, log),
		Wallet:   newWalletService(repos, validator, cfg.Wallet, log),
		Stats:    newStatsService(repos.Stats, sink, cfg.Monitor.SampleInterval, log),
		Tokens:   tokens,
	}
}
