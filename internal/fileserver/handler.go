// Package fileserver serves a directory tree over HTTP the way a plain
// development file server does: files with an inferred content type,
// directory listings, and standard error statuses.
package fileserver

import (
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/dimfeld/httptreemux"
)

// Handler serves files below a root directory. Only GET and HEAD are
// accepted; anything else gets 405.
type Handler struct {
	root   http.FileSystem
	files  http.Handler
	router *httptreemux.TreeMux
	logger *slog.Logger
}

// New creates a Handler rooted at dir. A nil logger discards log output.
func New(dir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	root := http.Dir(dir)
	h := &Handler{
		root:   root,
		files:  http.FileServer(root),
		logger: logger,
	}

	router := httptreemux.New()
	router.HeadCanUseGet = true
	router.GET("/", h.serve)
	router.GET("/*path", h.serve)
	router.PanicHandler = h.handlePanic
	h.router = router

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// serve writes regular files directly and hands everything else
// (directories, missing paths, permission errors) to http.FileServer.
// http.FileServer alone would redirect /index.html to ./, which is not
// what a client asking for index.html by name expects.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
	}
	if strings.HasSuffix(upath, "/") {
		h.files.ServeHTTP(w, r)
		return
	}

	f, err := h.root.Open(path.Clean(upath))
	if err != nil {
		h.files.ServeHTTP(w, r)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		h.files.ServeHTTP(w, r)
		return
	}

	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (h *Handler) handlePanic(w http.ResponseWriter, r *http.Request, err interface{}) {
	h.logger.Error("panic while serving request",
		"method", r.Method,
		"path", r.URL.Path,
		"panic", err,
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
