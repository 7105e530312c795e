package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/penwyp/go-activity-monitor/internal/application/viewer"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

const apiPrefix = "/api"

// NewRouter routes the session API. Unknown paths answer 404 and known paths
// with the wrong method answer 405, both with a JSON error body.
func NewRouter(session *viewer.Session, screenshots ScreenshotSource) *mux.Router {
	s := &Server{session: session, screenshots: screenshots}
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+req.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, req.Method+" is not allowed on "+req.URL.Path)
	})

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	// api routes hang off the root router; a PathPrefix subrouter reports
	// method mismatches as 404
	api := func(path string, h http.HandlerFunc, method string) {
		r.HandleFunc(apiPrefix+path, h).Methods(method)
	}
	api("/viewport", s.getViewport, http.MethodGet)
	api("/viewport/pan", s.pan, http.MethodPost)
	api("/viewport/zoom", s.zoom, http.MethodPost)
	api("/viewport/resize", s.resize, http.MethodPost)
	api("/viewport/glue", s.glue, http.MethodPost)
	api("/viewport/navigate", s.navigate, http.MethodPost)

	api("/ticks", s.getTicks, http.MethodGet)
	api("/intervals", s.getIntervals, http.MethodGet)
	api("/usage/apps", s.getAppUsage, http.MethodGet)
	api("/usage/windows", s.getWindowUsage, http.MethodGet)

	api("/selection", s.getSelection, http.MethodGet)
	api("/selection", s.clearSelection, http.MethodDelete)
	api("/selection/range", s.selectRange, http.MethodPost)
	api("/selection/app", s.selectApp, http.MethodPost)
	api("/selection/row", s.selectRow, http.MethodPost)
	api("/selection/at", s.selectAt, http.MethodPost)

	api("/hover", s.hover, http.MethodPost)
	api("/preview", s.getPreview, http.MethodGet)
	api("/screenshot", s.getScreenshot, http.MethodGet)

	return r
}

// NewHandler wraps the router with access logging and CORS
func NewHandler(session *viewer.Session, screenshots ScreenshotSource, allowedOrigins []string) http.Handler {
	router := NewRouter(session, screenshots)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(util.LogWriter(), cors(router))
}
