package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blog-content-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// URLPrefix is where the router serves stored avatars
const URLPrefix = "/avatars/"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

var (
	ErrUnsupportedType = &models.Error{
		Kind: models.KindValidation, Code: "unsupported_file_type",
		Message: "avatar must be a .jpg, .jpeg, .png or .gif file",
	}
	ErrFileTooLarge = &models.Error{
		Kind: models.KindValidation, Code: "file_too_large",
		Message: "avatar file is too large",
	}
)

// AvatarStore keeps uploaded avatars in a local directory
type AvatarStore struct {
	dir     string
	maxSize int64
	log     zerolog.Logger
}

// NewAvatarStore creates a store rooted at dir accepting files up to maxSize bytes
func NewAvatarStore(dir string, maxSize int64, log zerolog.Logger) *AvatarStore {
	return &AvatarStore{
		dir:     dir,
		maxSize: maxSize,
		log:     log.With().Str("component", "avatar_store").Logger(),
	}
}

// Save writes the file under a fresh unique name and returns its public reference
func (s *AvatarStore) Save(userID, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create avatar directory: %w", err)
	}

	prefix := userID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	name := fmt.Sprintf("%s_%s%s", prefix, uuid.New().String()[:8], ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return "", ErrFileTooLarge
	}

	s.log.Info().
		Str("user_id", userID).
		Str("file", name).
		Int64("size_bytes", written).
		Msg("Avatar stored")

	return URLPrefix + name, nil
}
