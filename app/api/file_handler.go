package api

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"hiraku/ingest"
	"hiraku/logger"
	"hiraku/store"
	"hiraku/vector"
)

// CoordinatorFactory builds the ingestion coordinator for a tenant.
// Coordinators are stateless, so one is constructed per request.
type CoordinatorFactory func(tenant string) (*ingest.Coordinator, error)

// IndexFactory resolves the tenant's vector index.
type IndexFactory func(tenant string) (vector.Index, error)

type FileHandler struct {
	coordinators CoordinatorFactory
	indexes      IndexFactory
	store        store.DBStorer
	uploadsDir   string
	log          *logger.Logger
}

func NewFileHandler(coordinators CoordinatorFactory, indexes IndexFactory, s store.DBStorer, uploadsDir string, log *logger.Logger) *FileHandler {
	return &FileHandler{
		coordinators: coordinators,
		indexes:      indexes,
		store:        s,
		uploadsDir:   uploadsDir,
		log:          log.With("handler", "file"),
	}
}

// HandleUpload stores the uploaded file under the tenant's uploads
// directory and ingests it. The ingestion report is returned verbatim,
// consistency warnings included.
func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	tenant := tenantFrom(c)
	dir := filepath.Join(h.uploadsDir, tenant)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(fileHeader.Filename))
	if err := c.SaveFile(fileHeader, path); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	h.log.Info("file uploaded", "tenant", tenant, "path", path)

	coordinator, err := h.coordinators(tenant)
	if err != nil {
		return err
	}
	report, err := coordinator.Ingest(c.UserContext(), []string{path})
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *FileHandler) HandleListDocuments(c *fiber.Ctx) error {
	docs, err := h.store.ListDocuments(c.UserContext(), tenantFrom(c))
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(docs))
	for _, d := range docs {
		out = append(out, fiber.Map{
			"id":           d.ID,
			"filename":     d.Filename,
			"file_type":    d.FileType,
			"created_at":   d.CreatedAt,
			"last_updated": d.LastUpdated,
		})
	}
	return c.JSON(fiber.Map{"documents": out})
}

// HandleReset wipes the tenant's corpus. The vector index is cleared
// first so that no vector record is ever left without its metadata row;
// a failure in between leaves only the repairable direction of
// inconsistency (metadata rows without vectors).
func (h *FileHandler) HandleReset(c *fiber.Ctx) error {
	tenant := tenantFrom(c)

	index, err := h.indexes(tenant)
	if err != nil {
		return err
	}
	if err := index.Reset(c.UserContext()); err != nil {
		return fmt.Errorf("reset vector index: %w", err)
	}
	if err := h.store.Reset(c.UserContext(), tenant); err != nil {
		return fmt.Errorf("reset metadata store: %w", err)
	}
	h.log.Info("corpus reset", "tenant", tenant)
	return c.JSON(fiber.Map{"result": "ok"})
}
