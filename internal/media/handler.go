package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/autohub/media/internal/response"
	"github.com/autohub/media/internal/storage"
)

// maxUploadMemory bounds how much of a multipart body is held in memory
// before spooling to disk.
const maxUploadMemory = 32 << 20

// Handler holds the HTTP handlers over the media core. Routing, auth, and
// request parsing conventions live at the edge; the core is reached only
// through the gateway, resolver, and coordinator.
type Handler struct {
	gateway     *Gateway
	resolver    *Resolver
	coordinator *Coordinator
	remote      storage.ObjectStore
	local       *storage.LocalStore
}

// NewHandler creates a media Handler.
func NewHandler(gateway *Gateway, resolver *Resolver, coordinator *Coordinator, remote storage.ObjectStore, local *storage.LocalStore) *Handler {
	return &Handler{
		gateway:     gateway,
		resolver:    resolver,
		coordinator: coordinator,
		remote:      remote,
		local:       local,
	}
}

// Upload accepts a multipart batch under the "files" field and stores it in
// the folder named by the route. Optional form fields: primary_index,
// preserve_original, quality. On any batch failure no partial list is
// returned.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	if folder == "" {
		response.BadRequest(w, "folder is required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(w, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		response.BadRequest(w, "no files provided")
		return
	}

	files := make([]UploadInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("unreadable file %q", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("unreadable file %q", fh.Filename))
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			// Non-browser clients often omit the part's type; sniff it so the
			// pre-I/O validation sees what the bytes actually are.
			contentType = http.DetectContentType(data)
		}
		files = append(files, UploadInput{
			Filename:    fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	opts := StoreOptions{
		PreserveOriginal: r.FormValue("preserve_original") == "true",
	}
	if v := r.FormValue("primary_index"); v != "" {
		if idx, err := strconv.Atoi(v); err == nil {
			opts.PrimaryIndex = idx
		}
	}
	if v := r.FormValue("quality"); v != "" {
		if q, err := strconv.Atoi(v); err == nil {
			opts.Quality = q
		}
	}

	results, err := h.gateway.Store(r.Context(), files, folder, opts)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidImageData):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrBackendUnavailable):
			response.ServiceUnavailable(w, "storage unavailable, retry the upload")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, results)
}

// Serve streams the asset at the wildcard key. A missing asset is served as
// the placeholder with a short cache TTL; this endpoint never errors for a
// miss.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	res := h.resolver.Resolve(r.Context(), key)

	w.Header().Set("Content-Type", res.ContentType)
	if res.Placeholder {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(res.CacheTTL.Seconds())))
	} else {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", int(res.CacheTTL.Seconds())))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Bytes)
}

type deleteRequest struct {
	Keys []string `json:"keys"`
}

// Delete removes the listed assets (keys or public URLs) and their variant
// siblings. Partial cleanup failures are reported in the body, not as an
// error status.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Keys) == 0 {
		response.BadRequest(w, "keys is required")
		return
	}
	response.OK(w, h.coordinator.DeleteMany(r.Context(), req.Keys))
}

// diagnostics is the upload health surface: which tiers are live and where
// local writes land.
type diagnostics struct {
	RemoteEnabled   bool     `json:"remote_enabled"`
	RemoteReachable bool     `json:"remote_reachable"`
	LocalRoots      []string `json:"local_roots"`
}

// Diagnostics reports storage-tier health for upload troubleshooting.
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	d := diagnostics{LocalRoots: h.local.Roots()}
	if h.remote != nil && h.remote.Enabled() {
		d.RemoteEnabled = true
		_, err := h.remote.Exists(r.Context(), "healthcheck-probe")
		d.RemoteReachable = err == nil
	}
	response.OK(w, d)
}
