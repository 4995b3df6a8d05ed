package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/clipboard"
	"bizdesk/internal/models"
	"bizdesk/internal/reveal"
	"bizdesk/internal/service/workspace"
	"bizdesk/internal/upload"
	"bizdesk/internal/worker"
)

const maxUploadForm = 32 << 20

// ViewManager is the per-view UI state the handlers drive.
type ViewManager interface {
	OpenView() string
	CloseView(viewID string) error
	ToggleReveal(viewID, fieldKey string) (bool, error)
	RevealSet(viewID string) (*reveal.Set, error)
	Copy(ctx context.Context, viewID, fieldKey string) error
	Copied(viewID, fieldKey string) (bool, error)
	StartUpload(ctx context.Context, viewID string, req worker.UploadRequest) (*upload.Batch, error)
	Batch(viewID, batchID string) (upload.BatchSnapshot, error)
	Batches(viewID string) ([]upload.BatchSnapshot, error)
	CancelUpload(viewID, batchID string) error
	Events(viewID string) (<-chan worker.Event, error)
}

// Handler wires HTTP routes to the workspace service and the view manager.
type Handler struct {
	workspace *workspace.Service
	views     ViewManager
	logger    *slog.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(ws *workspace.Service, views ViewManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		workspace: ws,
		views:     views,
		logger:    logger,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/entities", h.listEntities)
	api.POST("/entities", h.createEntity)
	api.GET("/entities/:id", h.getEntity)
	api.PATCH("/entities/:id", h.updateEntity)
	api.DELETE("/entities/:id", h.deleteEntity)
	api.GET("/entities/:id/categories", h.listCategories)
	api.POST("/entities/:id/categories", h.createCategory)

	api.GET("/categories/:id/accounts", h.listAccounts)
	api.POST("/categories/:id/accounts", h.createAccount)
	api.GET("/accounts/:id", h.getAccount)
	api.DELETE("/accounts/:id", h.deleteAccount)

	api.GET("/portals", h.listPortals)
	api.POST("/portals", h.createPortal)
	api.GET("/portals/:id", h.getPortal)
	api.DELETE("/portals/:id", h.deletePortal)

	api.GET("/gosi/summary", h.gosiSummary)
	api.GET("/gosi/invoices", h.listGosiInvoices)
	api.POST("/gosi/invoices", h.createGosiInvoice)
	api.POST("/gosi/invoices/:id/status", h.setGosiInvoiceStatus)
	api.GET("/gosi/check", h.checkGosiInvoice)
	api.GET("/employees", h.listEmployees)
	api.POST("/employees", h.createEmployee)
	api.GET("/employees/:id", h.getEmployee)
	api.PUT("/employees/:id", h.updateEmployee)
	api.GET("/employees/:id/payroll", h.employeePayroll)

	api.GET("/insurance", h.listPolicies)
	api.POST("/insurance", h.createPolicy)

	api.GET("/vendors", h.listVendors)
	api.POST("/vendors", h.createVendor)
	api.GET("/vendors/:id", h.getVendor)
	api.GET("/vendors/:id/invoices", h.listVendorInvoices)
	api.POST("/vendors/:id/invoices", h.createVendorInvoice)
	api.POST("/vendor-invoices/:id/pay", h.payVendorInvoice)

	api.GET("/folders", h.listFolders)
	api.POST("/folders", h.createFolder)
	api.GET("/documents", h.listDocuments)
	api.GET("/documents/:id", h.getDocument)
	api.DELETE("/documents/:id", h.deleteDocument)

	api.GET("/reminders", h.listReminders)
	api.POST("/reminders", h.addReminder)
	api.POST("/reminders/:id/toggle", h.toggleReminder)
	api.DELETE("/reminders/:id", h.deleteReminder)

	api.GET("/search", h.search)
	api.GET("/notifications", h.notifications)

	views := api.Group("/views")
	views.POST("", h.openView)
	views.DELETE("/:view", h.closeView)
	views.POST("/:view/reveal", h.toggleReveal)
	views.POST("/:view/copy", h.copyField)
	views.GET("/:view/copy", h.copyState)
	views.GET("/:view/uploads", h.listUploads)
	views.POST("/:view/uploads", h.startUpload)
	views.GET("/:view/uploads/:batch", h.getUpload)
	views.DELETE("/:view/uploads/:batch", h.cancelUpload)
	views.GET("/:view/events", h.streamEvents)
}

// writeError maps domain errors onto status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, worker.ErrViewNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
	case errors.Is(err, worker.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "upload batch not found"})
	case errors.Is(err, workspace.ErrFolderExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, reveal.ErrInvalidFieldKey),
		errors.Is(err, workspace.ErrUnknownSecret),
		errors.Is(err, upload.ErrEmptyBatch),
		errors.Is(err, upload.ErrNoFolder),
		errors.Is(err, upload.ErrInvalidFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, clipboard.ErrClipboardUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, worker.ErrDispatcherBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
	default:
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// revealSet returns the visibility set of the view named by ?view=. Without
// one every secret stays masked.
func (h *Handler) revealSet(c *gin.Context) (*reveal.Set, bool) {
	viewID := strings.TrimSpace(c.Query("view"))
	if viewID == "" {
		return nil, true
	}
	set, err := h.views.RevealSet(viewID)
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return set, true
}

func (h *Handler) openView(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"view_id": h.views.OpenView()})
}

func (h *Handler) closeView(c *gin.Context) {
	if err := h.views.CloseView(c.Param("view")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type fieldRequest struct {
	FieldKey string `json:"field_key"`
}

func (h *Handler) toggleReveal(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	shown, err := h.views.ToggleReveal(c.Param("view"), req.FieldKey)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field_key": req.FieldKey, "revealed": shown})
}

func (h *Handler) copyField(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.views.Copy(c.Request.Context(), c.Param("view"), req.FieldKey); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field_key": req.FieldKey, "copied": true})
}

func (h *Handler) copyState(c *gin.Context) {
	key := c.Query("field_key")
	if _, _, _, err := reveal.ParseFieldKey(key); err != nil {
		h.writeError(c, err)
		return
	}
	copied, err := h.views.Copied(c.Param("view"), key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field_key": key, "copied": copied})
}

type uploadRequest struct {
	EntityID string                  `json:"entity_id"`
	Folder   string                  `json:"folder"`
	Files    []upload.FileDescriptor `json:"files"`
}

// bindUpload accepts a JSON file list or a multipart form. Only the names and
// sizes of multipart parts are used.
func bindUpload(c *gin.Context) (uploadRequest, error) {
	var req uploadRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(maxUploadForm); err != nil {
			return req, fmt.Errorf("invalid multipart form: %w", err)
		}
		form := c.Request.MultipartForm
		defer form.RemoveAll()
		req.EntityID = c.PostForm("entity_id")
		req.Folder = c.PostForm("folder")
		for _, fh := range form.File["files"] {
			req.Files = append(req.Files, upload.FileDescriptor{
				Name: filepath.Base(fh.Filename),
				Size: fh.Size,
			})
		}
		return req, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

func (h *Handler) startUpload(c *gin.Context) {
	req, err := bindUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	batch, err := h.views.StartUpload(c.Request.Context(), c.Param("view"), worker.UploadRequest{
		EntityID: req.EntityID,
		Folder:   req.Folder,
		Files:    req.Files,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, batch.Snapshot())
}

func (h *Handler) listUploads(c *gin.Context) {
	batches, err := h.views.Batches(c.Param("view"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (h *Handler) getUpload(c *gin.Context) {
	snap, err := h.views.Batch(c.Param("view"), c.Param("batch"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) cancelUpload(c *gin.Context) {
	viewID, batchID := c.Param("view"), c.Param("batch")
	if err := h.views.CancelUpload(viewID, batchID); err != nil {
		h.writeError(c, err)
		return
	}
	snap, err := h.views.Batch(viewID, batchID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// streamEvents pushes view events as server-sent events until the client
// leaves or the view is closed.
func (h *Handler) streamEvents(c *gin.Context) {
	events, err := h.views.Events(c.Param("view"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if event != "" {
			if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := sendEvent("ready", gin.H{"view_id": c.Param("view")}); err != nil {
		return
	}
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = sendEvent("closed", gin.H{"view_id": c.Param("view")})
				return
			}
			if err := sendEvent(string(ev.Type), ev); err != nil {
				return
			}
		}
	}
}
