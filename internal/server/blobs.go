package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// maxBlobSize caps a single uploaded object at 32 MiB, comfortably
// above any full-resolution webp frame.
const maxBlobSize = 32 << 20

// BlobHandler is a disk-backed object store for project keys. Objects
// live under {root}/{projectID}/{name} and are addressed as
// /projects/{projectID}/{name}.
type BlobHandler struct {
	root   string
	logger *log.Logger
}

func NewBlobHandler(root string, logger *log.Logger) *BlobHandler {
	return &BlobHandler{root: root, logger: logger}
}

// Routes implements [Handler].
func (h *BlobHandler) Routes() []string {
	return []string{"/projects/"}
}

func (h *BlobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID, name, err := splitKey(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	path := filepath.Join(h.root, projectID, name)

	switch r.Method {
	case http.MethodGet:
		h.get(w, path)
	case http.MethodHead:
		h.head(w, path)
	case http.MethodPut:
		h.put(w, r, path)
	case http.MethodDelete:
		h.delete(w, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// splitKey validates an object path and returns its two segments.
// Rejects anything that could escape the store root.
func splitKey(urlPath string) (projectID, name string, err error) {
	key := strings.TrimPrefix(urlPath, "/projects/")
	parts := strings.Split(key, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("object keys are projects/{id}/{name}")
	}
	for _, part := range parts {
		if part == "." || part == ".." || strings.ContainsAny(part, `\`) {
			return "", "", fmt.Errorf("invalid key segment %q", part)
		}
	}
	return parts[0], parts[1], nil
}

func (h *BlobHandler) get(w http.ResponseWriter, path string) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, nil)
		return
	}
	if err != nil {
		h.logger.Error("blob read failed", "path", path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentTypeFor(path))
	if _, err := io.Copy(w, file); err != nil {
		h.logger.Warn("blob write interrupted", "path", path, "error", err)
	}
}

func (h *BlobHandler) head(w http.ResponseWriter, path string) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(path))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.WriteHeader(http.StatusOK)
}

func (h *BlobHandler) put(w http.ResponseWriter, r *http.Request, path string) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBlobSize+1))
	if err != nil {
		http.Error(w, "Reading request body failed", http.StatusBadRequest)
		return
	}
	if len(data) > maxBlobSize {
		http.Error(w, "Object too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.logger.Error("blob dir creation failed", "path", path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		h.logger.Error("blob write failed", "path", path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("blob stored", "path", path, "bytes", len(data))
	w.WriteHeader(http.StatusOK)
}

func (h *BlobHandler) delete(w http.ResponseWriter, path string) {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".json":
		return "application/json"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
