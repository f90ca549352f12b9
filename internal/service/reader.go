package service

import (
	"context"
	"log/slog"

	"github.com/mmcdole/folio/internal/domain"
)

// opener abstracts the external document viewer (consumer-defined interface)
type opener interface {
	Open(url string) error
}

// ReaderService orchestrates opening documents and covers in external applications
type ReaderService struct {
	opener   opener
	resolver *MediaResolver
	logger   *slog.Logger
}

// NewReaderService creates a new reader service
func NewReaderService(
	opener opener,
	resolver *MediaResolver,
	logger *slog.Logger,
) *ReaderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReaderService{
		opener:   opener,
		resolver: resolver,
		logger:   logger,
	}
}

// OpenDocument resolves the item's PDF and opens it in the viewer.
// It returns the opened URL.
func (s *ReaderService) OpenDocument(ctx context.Context, item domain.CatalogItem) (string, error) {
	url, err := s.resolver.ResolvePDF(ctx, item)
	if err != nil {
		s.logger.Error("failed to resolve document", "error", err, "itemID", item.ID)
		return "", err
	}

	s.logger.Info("opening document", "title", item.Title, "itemID", item.ID)

	return url, s.opener.Open(url)
}

// OpenOriginal opens the first original file of the item whatever its type,
// the escape hatch when no document exists
func (s *ReaderService) OpenOriginal(ctx context.Context, item domain.CatalogItem) (string, error) {
	url, err := s.resolver.ResolveOriginal(ctx, item)
	if err != nil {
		return "", err
	}
	s.logger.Info("opening original file", "itemID", item.ID)
	return url, s.opener.Open(url)
}

// OpenCover opens the item's cover image, if it has one
func (s *ReaderService) OpenCover(ctx context.Context, item domain.CatalogItem) error {
	url, ok := s.resolver.ResolveThumbnail(ctx, item)
	if !ok {
		return &domain.NotFoundError{Kind: "cover", ID: item.ID}
	}
	return s.opener.Open(url)
}

// OpenURL opens an already resolved document URL
func (s *ReaderService) OpenURL(url string) error {
	s.logger.Info("opening document", "url", url)
	return s.opener.Open(url)
}
