package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yegors/airport-sim/pkg/logger"
)

// ViewerHandler serves a browser viewer from disk without caching, so a
// viewer under development can be reloaded while the simulation runs
type ViewerHandler struct {
	dir    string
	logger *logger.Logger
}

// NewViewerHandler creates a handler serving files below dir
func NewViewerHandler(dir string, log *logger.Logger) *ViewerHandler {
	return &ViewerHandler{
		dir:    dir,
		logger: log.Named("viewer"),
	}
}

// ServeHTTP serves one file, index.html for directories
func (h *ViewerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if path == "" {
		path = "index.html"
	}

	absDir, err := filepath.Abs(h.dir)
	if err != nil {
		h.logger.Error("Failed to resolve viewer directory", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	fullPath := filepath.Join(absDir, path)

	if fullPath != absDir && !strings.HasPrefix(fullPath, absDir+string(filepath.Separator)) {
		h.logger.Warn("Rejected path outside the viewer directory", logger.String("requested_path", r.URL.Path))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(fullPath)
	if err == nil && info.IsDir() {
		fullPath = filepath.Join(fullPath, "index.html")
		_, err = os.Stat(fullPath)
	}
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", fullPath))
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	h.logger.Debug("Serving viewer file", logger.String("file_path", fullPath))
	http.ServeFile(w, r, fullPath)
}
