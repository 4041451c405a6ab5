package documents

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/legal-office-backend/internal/auth"
	"github.com/aldoetobex/legal-office-backend/internal/logger"
	"github.com/aldoetobex/legal-office-backend/internal/storage"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
	"github.com/aldoetobex/legal-office-backend/pkg/sanitize"
	"github.com/aldoetobex/legal-office-backend/pkg/utils"
	"github.com/aldoetobex/legal-office-backend/pkg/validation"
)

const DefaultCategory = "general"

// allowedTypes is the upload allow-list, matched on the media type without
// parameters.
var allowedTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"text/plain": true,
}

// ===== DTOs =====

// DocumentMeta is the editable metadata. On upload it arrives as form fields.
type DocumentMeta struct {
	Category    string `json:"category" form:"category" validate:"max=60"`
	Description string `json:"description" form:"description" validate:"max=5000"`
	ClientID    string `json:"clientId" form:"clientId" validate:"max=36"`
	CaseID      string `json:"caseId" form:"caseId" validate:"max=36"`
}

func (in *DocumentMeta) normalize() {
	in.Category = strings.ToLower(sanitize.Line(in.Category))
	if in.Category == "" {
		in.Category = DefaultCategory
	}
	in.Description = sanitize.Text(in.Description)
	in.ClientID = sanitize.Line(in.ClientID)
	in.CaseID = sanitize.Line(in.CaseID)
}

type Handler struct {
	pool      *database.Pool
	store     storage.Store
	maxBytes  int64
	keyPrefix string
}

// NewHandler wires the document handlers. keyPrefix is prepended to every
// storage key ("" for the local upload directory).
func NewHandler(pool *database.Pool, store storage.Store, maxBytes int64, keyPrefix string) *Handler {
	return &Handler{pool: pool, store: store, maxBytes: maxBytes, keyPrefix: keyPrefix}
}

// List Documents godoc
// @Summary      List documents
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        category  query string false "category or all"
// @Param        clientId  query string false "client id"
// @Param        caseId    query string false "case id"
// @Param        search    query string false "name, original name or description contains"
// @Param        page      query int    false "page"
// @Param        limit     query int    false "limit"
// @Success      200  {object}  models.Envelope{data=[]models.Document}
// @Failure      401  {object}  models.ErrorResponse
// @Router       /documents [get]
func (h *Handler) List(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	w := utils.NewWhere().
		Eq("d.category", strings.ToLower(c.Query("category"))).
		Eq("d.client_id", c.Query("clientId")).
		Eq("d.case_id", c.Query("caseId")).
		Search(c.Query("search"), "d.name", "d.original_name", "d.description")

	rows, total, err := utils.Paginate[models.Document](c.UserContext(), h.pool, utils.ListQuery{
		Select:  "SELECT d.* FROM documents d",
		Count:   "SELECT COUNT(*) FROM documents d",
		Where:   w,
		OrderBy: "d.uploaded_at DESC",
	}, p)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: rows, Pagination: p.Meta(total)})
}

// Upload Document godoc
// @Summary      Upload document
// @Description  Stores one file (PDF, Word, JPEG, PNG, GIF or plain text) and its metadata
// @Tags         documents
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file    true   "document"
// @Param        category     formData  string  false  "category (default general)"
// @Param        description  formData  string  false  "description"
// @Param        clientId     formData  string  false  "client id"
// @Param        caseId       formData  string  false  "case id"
// @Success      201  {object}  models.Envelope{data=models.Document}
// @Failure      400  {object}  models.ErrorResponse
// @Failure      413  {object}  models.ErrorResponse
// @Router       /documents [post]
func (h *Handler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}
	if fh.Size <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "File is empty")
	}
	if fh.Size > h.maxBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds the %d MB limit", h.maxBytes>>20))
	}

	var meta DocumentMeta
	if err := c.BodyParser(&meta); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}
	meta.normalize()
	if errs, _ := validation.Validate(meta); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if err := h.checkRefs(ctx, meta); err != nil {
		return err
	}

	ct, err := contentType(fh)
	if err != nil {
		return err
	}
	if !allowedTypes[ct] {
		return fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}

	// <base>_<unix ms><ext> keeps names unique and filesystem-safe.
	name := fmt.Sprintf("%s_%d%s", sanitize.FileBase(fh.Filename), time.Now().UnixMilli(), sanitize.FileExt(fh.Filename))
	key := storage.MakeObjectKey(h.keyPrefix, name)

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	url, err := h.store.Save(ctx, key, f, fh.Size, ct)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	now := utils.Now()
	_, err = h.pool.Exec(ctx,
		`INSERT INTO documents (id, name, original_name, storage_key, url, size, mime_type, category, description,
		 client_id, case_id, uploaded_by, uploaded_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, sanitize.Line(fh.Filename), key, url, fh.Size, ct, meta.Category, meta.Description,
		meta.ClientID, meta.CaseID, auth.MustUserID(c), now, now)
	if err != nil {
		h.discard(key)
		return err
	}

	doc, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.Envelope{
		Success: true,
		Message: "Document uploaded successfully",
		Data:    doc,
	})
}

// Get Document godoc
// @Summary      Document metadata
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "document id"
// @Success      200  {object}  models.Envelope{data=models.Document}
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	doc, err := h.find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Data: doc})
}

// Update Document godoc
// @Summary      Update document metadata
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string        true  "document id"
// @Param        payload  body  DocumentMeta  true  "Metadata"
// @Success      200  {object}  models.Envelope{data=models.Document}
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{id} [put]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in DocumentMeta
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.normalize()
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ctx := c.UserContext()
	if err := h.checkRefs(ctx, in); err != nil {
		return err
	}
	res, err := h.pool.Exec(ctx,
		"UPDATE documents SET category = ?, description = ?, client_id = ?, case_id = ?, updated_at = ? WHERE id = ?",
		in.Category, in.Description, in.ClientID, in.CaseID, utils.Now(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return notFound()
	}

	doc, err := h.find(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(models.Envelope{Success: true, Message: "Document updated successfully", Data: doc})
}

// Delete Document godoc
// @Summary      Delete document
// @Description  Removes the stored file (best effort) and the metadata row
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "document id"
// @Success      200  {object}  models.Envelope
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	ctx := c.UserContext()
	doc, err := h.find(ctx, c.Params("id"))
	if err != nil {
		return err
	}

	h.discard(doc.StorageKey)

	res, err := h.pool.Exec(ctx, "DELETE FROM documents WHERE id = ?", doc.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return notFound()
	}
	return c.JSON(models.Envelope{Success: true, Message: "Document deleted successfully"})
}

// Download Document godoc
// @Summary      Download document
// @Tags         documents
// @Security     BearerAuth
// @Produce      octet-stream
// @Param        id   path string true "document id"
// @Success      200  {file}    file
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{id}/download [get]
func (h *Handler) Download(c *fiber.Ctx) error {
	ctx := c.UserContext()
	doc, err := h.find(ctx, c.Params("id"))
	if err != nil {
		return err
	}

	rc, err := h.store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "File not found")
		}
		return err
	}

	c.Set(fiber.HeaderContentType, doc.MimeType)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName}))
	// the stream is closed by fasthttp once written
	return c.SendStream(rc, int(doc.Size))
}

/* ============================== helpers ============================== */

func (h *Handler) find(ctx context.Context, id string) (models.Document, error) {
	var doc models.Document
	if err := h.pool.Get(ctx, &doc, "SELECT * FROM documents WHERE id = ?", id); err != nil {
		if database.IsNotFound(err) {
			return doc, notFound()
		}
		return doc, err
	}
	return doc, nil
}

func (h *Handler) checkRefs(ctx context.Context, in DocumentMeta) error {
	if in.ClientID != "" {
		if _, err := utils.FindClient(ctx, h.pool, in.ClientID); err != nil {
			return err
		}
	}
	if in.CaseID != "" {
		ok, err := h.pool.Exists(ctx, "SELECT id FROM cases WHERE id = ?", in.CaseID)
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Case not found")
		}
	}
	return nil
}

// discard removes a stored object. Failures are logged only.
func (h *Handler) discard(key string) {
	if err := h.store.Delete(context.Background(), key); err != nil {
		logger.With("documents").Warn("stored file not removed", "key", key, "error", err)
	}
}

// contentType trusts the part header unless it is missing or generic, in
// which case the leading bytes are sniffed.
func contentType(fh *multipart.FileHeader) (string, error) {
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct == "" || strings.HasPrefix(ct, fiber.MIMEOctetStream) {
		f, err := fh.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		mt, err := mimetype.DetectReader(f)
		if err != nil {
			return "", err
		}
		ct = mt.String()
	}
	base, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}
	return base, nil
}

func notFound() error {
	return fiber.NewError(fiber.StatusNotFound, "Document not found")
}
