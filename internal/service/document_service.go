package service

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/storage"
)

type documentStorage interface {
	SaveStream(relPath string, r io.Reader, limit int64) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
}

// DocumentConfig tunes document uploads.
type DocumentConfig struct {
	APIPrefix    string
	MaxSizeBytes int64
	AllowedMIMEs []string
}

// DocumentLink is a signed download link for a stored document.
type DocumentLink struct {
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentService stores supporting agreement documents and receipt images and hands out signed links to them.
type DocumentService struct {
	storage documentStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     DocumentConfig
	now     func() time.Time
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(store documentStorage, signer *storage.SignedURLSigner, cfg DocumentConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 5 * 1024 * 1024
	}
	return &DocumentService{storage: store, signer: signer, logger: logger, cfg: cfg, now: time.Now}
}

// Store saves an uploaded document for a plan and returns its relative path.
func (s *DocumentService) Store(planID, filename, contentType string, r io.Reader) (string, error) {
	stored, err := s.save("plans", planID, filename, contentType, r)
	if err != nil {
		return "", err
	}
	s.logger.Info("supporting document stored", zap.String("plan_id", planID), zap.String("path", stored))
	return stored, nil
}

// StoreReceipt saves a payment receipt image under the student's folder.
func (s *DocumentService) StoreReceipt(studentID, filename, contentType string, r io.Reader) (string, error) {
	stored, err := s.save("receipts", studentID, filename, contentType, r)
	if err != nil {
		return "", err
	}
	s.logger.Info("receipt image stored", zap.String("student_id", studentID), zap.String("path", stored))
	return stored, nil
}

func (s *DocumentService) save(folder, owner, filename, contentType string, r io.Reader) (string, error) {
	if !s.allowed(contentType) {
		return "", appErrors.Clonef(appErrors.ErrValidation, "document type %s is not allowed", contentType)
	}
	relPath := fmt.Sprintf("%s/%s/%s_%s", folder, sanitizeFilename(owner), s.now().UTC().Format("20060102_150405"), sanitizeFilename(filepath.Base(filename)))
	stored, err := s.storage.SaveStream(relPath, r, s.cfg.MaxSizeBytes)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to store document")
	}
	return stored, nil
}

// Discard removes a stored document whose owning operation failed.
func (s *DocumentService) Discard(relPath string) {
	if err := s.storage.Delete(relPath); err != nil {
		s.logger.Warn("failed to discard document", zap.String("path", relPath), zap.Error(err))
	}
}

// Link signs a download link for a stored document.
func (s *DocumentService) Link(planID, relPath string) (*DocumentLink, error) {
	token, expiresAt, err := s.signer.Generate(planID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign document link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &DocumentLink{
		Path:      relPath,
		URL:       fmt.Sprintf("%s/documents/download?token=%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and opens the document it points to.
func (s *DocumentService) Resolve(token string) (*os.File, string, error) {
	_, relPath, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid document token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return file, filepath.Base(relPath), nil
}

func (s *DocumentService) allowed(contentType string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, mediaType) {
			return true
		}
	}
	return false
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
