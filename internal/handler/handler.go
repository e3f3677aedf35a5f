package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dialoguetree/internal/codec"
	"dialoguetree/internal/domain"
	"dialoguetree/internal/service"
)

// maxImportSize bounds import uploads
const maxImportSize = 32 << 20

// StoreHandler handles the dialogue store REST API
type StoreHandler struct {
	svc    *service.StoreService
	logger *zap.Logger
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(svc *service.StoreService, logger *zap.Logger) *StoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreHandler{svc: svc, logger: logger}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// ListNodes returns all nodes
func (h *StoreHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.ListNodes(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list nodes", err)
		return
	}
	h.writeJSON(w, nodes, http.StatusOK)
}

// GetNode returns a single node
func (h *StoreHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	node, err := h.svc.GetNode(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get node", err)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// CreateNode creates a node under the id in the body
func (h *StoreHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var node domain.Node
	if !h.decode(w, r, &node) {
		return
	}
	if err := h.svc.CreateNode(r.Context(), &node); err != nil {
		h.fail(w, r, "Failed to create node", err)
		return
	}
	h.writeJSON(w, node, http.StatusCreated)
}

// UpdateNode applies a partial update
func (h *StoreHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var patch domain.NodePatch
	if !h.decode(w, r, &patch) {
		return
	}
	node, err := h.svc.UpdateNode(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, "Failed to update node", err)
		return
	}
	h.writeJSON(w, node, http.StatusOK)
}

// DeleteNode removes a node
func (h *StoreHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteNode(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConnections returns all connections
func (h *StoreHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.svc.ListConnections(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list connections", err)
		return
	}
	h.writeJSON(w, conns, http.StatusOK)
}

// CreateConnection creates a connection
func (h *StoreHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var conn domain.Connection
	if !h.decode(w, r, &conn) {
		return
	}
	if err := h.svc.CreateConnection(r.Context(), &conn); err != nil {
		h.fail(w, r, "Failed to create connection", err)
		return
	}
	h.writeJSON(w, conn, http.StatusCreated)
}

// DeleteConnection removes a connection
func (h *StoreHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteConnection(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete connection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGameElements returns the registry rows
func (h *StoreHandler) ListGameElements(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListGameElements(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list game elements", err)
		return
	}
	h.writeJSON(w, records, http.StatusOK)
}

// CreateGameElements creates a registry row
func (h *StoreHandler) CreateGameElements(w http.ResponseWriter, r *http.Request) {
	var elements domain.GameElements
	if !h.decode(w, r, &elements) {
		return
	}
	rec, err := h.svc.CreateGameElements(r.Context(), elements)
	if err != nil {
		h.fail(w, r, "Failed to create game elements", err)
		return
	}
	h.writeJSON(w, rec, http.StatusCreated)
}

// UpdateGameElements replaces a registry row
func (h *StoreHandler) UpdateGameElements(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var elements domain.GameElements
	if !h.decode(w, r, &elements) {
		return
	}
	rec, err := h.svc.UpdateGameElements(r.Context(), id, elements)
	if err != nil {
		h.fail(w, r, "Failed to update game elements", err)
		return
	}
	h.writeJSON(w, rec, http.StatusOK)
}

// Export downloads the whole store. ?format=yaml switches from JSON.
func (h *StoreHandler) Export(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, "Unsupported export format", err)
		return
	}
	doc, err := h.svc.Export(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to export", err)
		return
	}

	var buf bytes.Buffer
	if err := c.Export(doc, &buf); err != nil {
		h.fail(w, r, "Failed to export", err)
		return
	}

	w.Header().Set("Content-Type", codec.ContentType(c.Format()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=dialogue-tree.%s", c.Format()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write export", zap.Error(err))
	}
}

// Import replaces the whole store. The document comes as the request
// body (JSON, or YAML by content type or ?format=yaml) or as the "file"
// field of a multipart form.
func (h *StoreHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, format, err := importSource(w, r)
	if err != nil {
		h.fail(w, r, "Failed to read import", err)
		return
	}
	defer body.Close()

	c, err := codec.ForFormat(format)
	if err != nil {
		h.fail(w, r, "Unsupported import format", err)
		return
	}
	doc, err := c.Parse(body)
	if err != nil {
		h.fail(w, r, "Invalid import document", err)
		return
	}
	if err := h.svc.Import(r.Context(), doc); err != nil {
		h.fail(w, r, "Failed to import", err)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"message":     "Import successful",
		"nodes":       len(doc.Nodes),
		"connections": len(doc.Connections),
	}, http.StatusOK)
}

func importSource(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", domain.Wrap(domain.KindValidation, "import", err)
		}
		return file, codec.FormatFromPath(header.Filename), nil
	}

	format := r.URL.Query().Get("format")
	if format == "" && strings.Contains(mediaType, "yaml") {
		format = "yaml"
	}
	return r.Body, format, nil
}

// Health reports liveness and store size
func (h *StoreHandler) Health(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		h.writeJSON(w, map[string]string{"status": "unhealthy", "error": err.Error()}, http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, map[string]interface{}{"status": "ok", "store": st}, http.StatusOK)
}

// Helper methods

func (h *StoreHandler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		h.writeError(w, "Invalid ID", domain.Errorf(domain.KindValidation, "parse id", "%q is not a positive integer", raw))
		return 0, false
	}
	return id, true
}

func (h *StoreHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid request body", domain.Wrap(domain.KindValidation, "decode body", err))
		return false
	}
	return true
}

func (h *StoreHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	h.writeError(w, msg, err)
}

// StatusFor maps an error onto an HTTP status by its domain kind
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindInvalidEdge, domain.KindParse:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *StoreHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode JSON", zap.Error(err))
	}
}

func (h *StoreHandler) writeError(w http.ResponseWriter, msg string, err error) {
	status := StatusFor(err)
	if status == http.StatusNotFound {
		msg = "Not found"
	}
	h.writeJSON(w, ErrorResponse{
		Error:   msg,
		Kind:    string(domain.KindOf(err)),
		Details: err.Error(),
	}, status)
}
