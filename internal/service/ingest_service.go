package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/events"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/pkg/docload"
	"ai-docchat-be/pkg/store"
	"ai-docchat-be/pkg/textsplit"
	"ai-docchat-be/pkg/vectorindex"
)

// ErrInvalidUpload marks upload-validation failures the client can fix.
var ErrInvalidUpload = errors.New("invalid upload")

// UploadedFile is one document received from the client, already read
// into memory.
type UploadedFile struct {
	Name string
	Data []byte
}

// IngestResult summarizes what ended up in the session index. Skipped
// lists files that were ignored because their format is unsupported.
type IngestResult struct {
	Files   []string
	Skipped []string
	Chunks  int
}

type IIngestService interface {
	// Ingest extracts, chunks, embeds and indexes the uploaded
	// documents, then installs the index on the session. Progress is
	// reported through the notifier. Repeated uploads accumulate:
	// earlier chunk ids keep their text for the session's lifetime.
	Ingest(ctx context.Context, sessionID string, files []UploadedFile) (*IngestResult, error)
}

type ingestService struct {
	builder  *vectorindex.Builder
	notifier events.Notifier

	sessionRepo sessionGetter
	cfg         *config.Config
	logger      logger.ILogger
	validate    *validator.Validate

	// Swappable in tests; docload.Extract otherwise.
	extract func(data []byte, extension string) (string, error)
}

type sessionGetter interface {
	Get(sessionID string) (*store.Session, bool)
}

func NewIngestService(
	builder *vectorindex.Builder,
	notifier events.Notifier,
	sessionRepo sessionGetter,
	cfg *config.Config,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		builder:     builder,
		notifier:    notifier,
		sessionRepo: sessionRepo,
		cfg:         cfg,
		logger:      log,
		validate:    validator.New(),
		extract:     docload.Extract,
	}
}

func (s *ingestService) Ingest(ctx context.Context, sessionID string, files []UploadedFile) (*IngestResult, error) {
	session, ok := s.sessionRepo.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if err := s.validateUpload(files); err != nil {
		return nil, err
	}

	// Ingestion and question turns exclude each other.
	session.FlowLock()
	defer session.FlowUnlock()

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	progressID := s.notifier.SendMessage(sessionID, constant.AuthorChatbot,
		fmt.Sprintf("Processing `%s`...", strings.Join(names, "`, `")), nil)

	// Chunk ids continue across files AND across uploads: an id assigned
	// in an earlier upload keeps resolving to the same text, so evidence
	// tags in already-delivered answers stay valid.
	existing := session.Chunks()
	var added []store.Chunk
	processed := make([]string, 0, len(files))
	var skipped []string

	for _, file := range files {
		text, err := s.extract(file.Data, filepath.Ext(file.Name))
		if err != nil {
			if errors.Is(err, docload.ErrUnsupportedFormat) {
				s.logger.Warn("IngestService", "Skipping unsupported file", map[string]interface{}{
					"session_id": sessionID,
					"file":       file.Name,
				})
				skipped = append(skipped, file.Name)
				continue
			}
			s.notifier.UpdateMessage(sessionID, progressID,
				fmt.Sprintf("Failed to process `%s`. Please try again.", file.Name), nil)
			return nil, fmt.Errorf("extract %s: %w", file.Name, err)
		}

		for _, part := range textsplit.Split(text, s.cfg.Ingest.ChunkSize, s.cfg.Ingest.ChunkOverlap) {
			added = append(added, store.Chunk{
				ID:             vectorindex.ChunkID(len(existing) + len(added)),
				Text:           part,
				SourceDocument: file.Name,
			})
		}
		processed = append(processed, file.Name)
	}

	if len(added) == 0 {
		s.notifier.UpdateMessage(sessionID, progressID,
			"None of the uploaded files could be read. Please upload PDF or DOCX documents.", nil)
		return nil, errors.New("no readable content in the uploaded files")
	}

	// The index always covers the combined chunk sequence of every
	// upload so far.
	combined := append(existing, added...)
	texts := make([]string, len(combined))
	for i, chunk := range combined {
		texts[i] = chunk.Text
	}

	index, err := s.builder.Build(ctx, texts)
	if err != nil {
		// The session survives; the user can retry the upload.
		s.notifier.UpdateMessage(sessionID, progressID,
			"Failed to process the documents. Please try again.", nil)
		return nil, fmt.Errorf("build index: %w", err)
	}
	session.SetIndex(index, combined)

	s.logger.Info("IngestService", "Documents indexed", map[string]interface{}{
		"session_id": sessionID,
		"files":      processed,
		"skipped":    skipped,
		"chunks":     len(combined),
	})
	summary := fmt.Sprintf("`%s` processed. You can now ask questions!", strings.Join(processed, "`, `"))
	if len(skipped) > 0 {
		summary += fmt.Sprintf(" Skipped unsupported file(s): `%s`.", strings.Join(skipped, "`, `"))
	}
	s.notifier.UpdateMessage(sessionID, progressID, summary, nil)
	return &IngestResult{Files: processed, Skipped: skipped, Chunks: len(combined)}, nil
}

func (s *ingestService) validateUpload(files []UploadedFile) error {
	if err := s.validate.Var(files, fmt.Sprintf("min=1,max=%d", s.cfg.Ingest.MaxFiles)); err != nil {
		if len(files) == 0 {
			return fmt.Errorf("%w: no files uploaded", ErrInvalidUpload)
		}
		return fmt.Errorf("%w: too many files, %d exceeds the limit of %d", ErrInvalidUpload, len(files), s.cfg.Ingest.MaxFiles)
	}

	sizeTag := fmt.Sprintf("max=%d", s.cfg.Ingest.MaxUploadSizeMB*1024*1024)
	for _, file := range files {
		if err := s.validate.Var(file.Data, sizeTag); err != nil {
			return fmt.Errorf("%w: %s exceeds the %dMB size limit", ErrInvalidUpload, file.Name, s.cfg.Ingest.MaxUploadSizeMB)
		}
	}
	return nil
}
