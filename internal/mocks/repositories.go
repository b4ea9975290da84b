package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/repository"
	"github.com/google/uuid"
)

// MockRepositories links the in-memory repositories the way foreign keys link
// the tables, so author names resolve and missing articles are rejected.
type MockRepositories struct {
	Users    *MockUserRepository
	Articles *MockArticleRepository
	Comments *MockCommentRepository
	Likes    *MockLikeRepository
	Wallet   *MockWalletRepository
	Stats    *MockStatsRepository
}

func NewMockRepositories() *MockRepositories {
	users := NewMockUserRepository()
	articles := NewMockArticleRepository(users)
	return &MockRepositories{
		Users:    users,
		Articles: articles,
		Comments: NewMockCommentRepository(users, articles),
		Likes:    NewMockLikeRepository(articles),
		Wallet:   NewMockWalletRepository(users),
		Stats:    NewMockStatsRepository(),
	}
}

// Repositories exposes the mocks through the repository interfaces
func (m *MockRepositories) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:    m.Users,
		Article: m.Articles,
		Comment: m.Comments,
		Like:    m.Likes,
		Wallet:  m.Wallet,
		Stats:   m.Stats,
	}
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mu          sync.RWMutex
	Users       map[string]*models.User
	InsertError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertError != nil {
		return m.InsertError
	}
	for _, u := range m.Users {
		if u.Username == user.Username {
			return models.ErrDuplicateHandle
		}
		if u.Email == user.Email {
			return models.ErrDuplicateEmail
		}
	}
	stored := *user
	m.Users[user.ID] = &stored
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.Users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	u, err := m.GetByUsername(ctx, username)
	return u != nil, err
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.Users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.update(id, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (m *MockUserRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return m.update(id, func(u *models.User) { u.Avatar = &avatar })
}

func (m *MockUserRepository) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.Users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Users), nil
}

func (m *MockUserRepository) username(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.Users[id]; ok {
		return u.Username
	}
	return ""
}

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	mu          sync.RWMutex
	users       *MockUserRepository
	Articles    map[string]*models.Article
	InsertError error
}

func NewMockArticleRepository(users *MockUserRepository) *MockArticleRepository {
	return &MockArticleRepository{
		users:    users,
		Articles: make(map[string]*models.Article),
	}
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertError != nil {
		return m.InsertError
	}
	stored := *article
	stored.Tags = append([]string(nil), article.Tags...)
	stored.HasPassword = stored.Password != ""
	m.Articles[article.ID] = &stored
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	m.mu.RLock()
	a, ok := m.Articles[id]
	var cp models.Article
	if ok {
		cp = *a
	}
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return m.withAuthor(&cp), nil
}

func (m *MockArticleRepository) Exists(ctx context.Context, id string) (bool, error) {
	return m.exists(id), nil
}

func (m *MockArticleRepository) exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Articles[id]
	return ok
}

func (m *MockArticleRepository) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.Articles[id]
	if !ok {
		return 0, models.ErrArticleNotFound
	}
	a.ViewCount++
	return a.ViewCount, nil
}

func (m *MockArticleRepository) ListPublic(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, int, error) {
	keyword := strings.ToLower(filter.Keyword)
	matches := m.collect(func(a *models.Article) bool {
		if a.IsPrivate {
			return false
		}
		if filter.Category != "" && a.Category != filter.Category {
			return false
		}
		if filter.AuthorID != "" && a.AuthorID != filter.AuthorID {
			return false
		}
		if keyword != "" {
			haystack := strings.ToLower(a.Title + "\n" + a.Body + "\n" + strings.Join(a.Tags, ","))
			return strings.Contains(haystack, keyword)
		}
		return true
	})
	sortNewestFirst(matches)

	total := len(matches)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matches[start:end], total, nil
}

func (m *MockArticleRepository) Popular(ctx context.Context, limit int) ([]*models.Article, error) {
	matches := m.collect(func(a *models.Article) bool { return !a.IsPrivate })
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].ViewCount != matches[j].ViewCount {
			return matches[i].ViewCount > matches[j].ViewCount
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MockArticleRepository) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	counts := make(map[string]int)
	for _, a := range m.collect(func(a *models.Article) bool { return !a.IsPrivate && a.Category != "" }) {
		counts[a.Category]++
	}

	result := make([]models.CategoryCount, 0, len(counts))
	for category, n := range counts {
		result = append(result, models.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Articles), nil
}

func (m *MockArticleRepository) collect(keep func(*models.Article) bool) []*models.Article {
	m.mu.RLock()
	var out []*models.Article
	for _, a := range m.Articles {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	for _, a := range out {
		m.withAuthor(a)
	}
	return out
}

func (m *MockArticleRepository) withAuthor(a *models.Article) *models.Article {
	if m.users != nil {
		a.AuthorName = m.users.username(a.AuthorID)
	}
	return a
}

func sortNewestFirst(articles []*models.Article) {
	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].CreatedAt.Equal(articles[j].CreatedAt) {
			return articles[i].CreatedAt.After(articles[j].CreatedAt)
		}
		return articles[i].ID > articles[j].ID
	})
}

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	mu          sync.RWMutex
	users       *MockUserRepository
	articles    *MockArticleRepository
	Comments    map[string]*models.Comment
	InsertError error
}

func NewMockCommentRepository(users *MockUserRepository, articles *MockArticleRepository) *MockCommentRepository {
	return &MockCommentRepository{
		users:    users,
		articles: articles,
		Comments: make(map[string]*models.Comment),
	}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.articles != nil && !m.articles.exists(comment.ArticleID) {
		return models.ErrArticleNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertError != nil {
		return m.InsertError
	}
	stored := *comment
	stored.Replies = nil
	m.Comments[comment.ID] = &stored
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.RLock()
	c, ok := m.Comments[id]
	var cp models.Comment
	if ok {
		cp = *c
	}
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return m.withAuthor(&cp), nil
}

func (m *MockCommentRepository) ListRoots(ctx context.Context, articleID string) ([]*models.Comment, error) {
	return m.list(func(c *models.Comment) bool {
		return c.ArticleID == articleID && c.ParentID == nil
	}), nil
}

func (m *MockCommentRepository) ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	return m.list(func(c *models.Comment) bool { return c.ArticleID == articleID }), nil
}

func (m *MockCommentRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Comments), nil
}

func (m *MockCommentRepository) list(keep func(*models.Comment) bool) []*models.Comment {
	m.mu.RLock()
	out := []*models.Comment{}
	for _, c := range m.Comments {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	for _, c := range out {
		m.withAuthor(c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *MockCommentRepository) withAuthor(c *models.Comment) *models.Comment {
	if m.users != nil {
		c.AuthorName = m.users.username(c.UserID)
	}
	return c
}

// MockLikeRepository is a mock implementation of LikeRepository
type MockLikeRepository struct {
	mu       sync.Mutex
	articles *MockArticleRepository
	// Likes maps article ID to the set of users liking it
	Likes map[string]map[string]bool
}

func NewMockLikeRepository(articles *MockArticleRepository) *MockLikeRepository {
	return &MockLikeRepository{
		articles: articles,
		Likes:    make(map[string]map[string]bool),
	}
}

func (m *MockLikeRepository) Toggle(ctx context.Context, userID, articleID string) (bool, int, error) {
	if m.articles != nil && !m.articles.exists(articleID) {
		return false, 0, models.ErrArticleNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.Likes[articleID]
	if !ok {
		set = make(map[string]bool)
		m.Likes[articleID] = set
	}
	if set[userID] {
		delete(set, userID)
		return false, len(set), nil
	}
	set[userID] = true
	return true, len(set), nil
}

func (m *MockLikeRepository) Exists(ctx context.Context, userID, articleID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Likes[articleID][userID], nil
}

func (m *MockLikeRepository) Count(ctx context.Context, articleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Likes[articleID]), nil
}

// MockWalletRepository is a mock implementation of WalletRepository. Apply
// holds the user store's write lock for the whole mutation, standing in for
// the row lock.
type MockWalletRepository struct {
	mu         sync.Mutex
	users      *MockUserRepository
	Entries    []*models.LedgerEntry
	ApplyError error
}

func NewMockWalletRepository(users *MockUserRepository) *MockWalletRepository {
	return &MockWalletRepository{users: users}
}

func (m *MockWalletRepository) Apply(ctx context.Context, userID string, fn repository.LedgerFunc) (*models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ApplyError != nil {
		return nil, m.ApplyError
	}

	m.users.mu.Lock()
	defer m.users.mu.Unlock()

	user, ok := m.users.Users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}

	acct := &models.Account{UserID: userID, Balance: user.WalletBalance, IsVIP: user.IsVIP}
	for _, e := range m.Entries {
		if e.UserID == userID && e.Bonus > 0 {
			acct.BonusGranted = true
			break
		}
	}

	entry, err := fn(acct)
	if err != nil {
		return nil, err
	}
	if acct.Balance < 0 {
		return nil, models.ErrInsufficientBalance
	}

	user.WalletBalance = acct.Balance
	user.IsVIP = acct.IsVIP
	user.UpdatedAt = time.Now()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.UserID = userID
	entry.BalanceAfter = acct.Balance

	stored := *entry
	m.Entries = append(m.Entries, &stored)
	return entry, nil
}

func (m *MockWalletRepository) ListEntries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := []*models.LedgerEntry{}
	for i := len(m.Entries) - 1; i >= 0; i-- {
		if m.Entries[i].UserID != userID {
			continue
		}
		cp := *m.Entries[i]
		entries = append(entries, &cp)
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (m *MockWalletRepository) StreamEntries(ctx context.Context, userID string, callback func(*models.LedgerEntry) error) error {
	m.mu.Lock()
	var entries []*models.LedgerEntry
	for _, e := range m.Entries {
		if e.UserID == userID {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	m.mu.Unlock()

	for _, e := range entries {
		if err := callback(e); err != nil {
			return err
		}
	}
	return nil
}

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mu          sync.Mutex
	Snapshots   []*models.NetworkSnapshot
	InsertError error
}

func NewMockStatsRepository() *MockStatsRepository {
	return &MockStatsRepository{}
}

func (m *MockStatsRepository) Insert(ctx context.Context, snapshot *models.NetworkSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertError != nil {
		return m.InsertError
	}
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	stored := *snapshot
	m.Snapshots = append(m.Snapshots, &stored)
	return nil
}

func (m *MockStatsRepository) Recent(ctx context.Context, limit int) ([]*models.NetworkSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*models.NetworkSnapshot{}
	for i := len(m.Snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.Snapshots[i]
		out = append(out, &cp)
	}
	return out, nil
}
