package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-activity-monitor/internal/application/viewer"
	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/selection"
	"github.com/penwyp/go-activity-monitor/internal/core/viewport"
	"github.com/penwyp/go-activity-monitor/internal/util"
)

// ScreenshotSource looks up stored screenshots
type ScreenshotSource interface {
	GetNearestScreenshot(ctx context.Context, tsMs int64, appID *int64) (*model.Screenshot, error)
}

type Server struct {
	session     *viewer.Session
	screenshots ScreenshotSource
}

type viewportResponse struct {
	Viewport        viewport.Viewport `json:"viewport"`
	StartMs         float64           `json:"startMs"`
	EndMs           float64           `json:"endMs"`
	ZoomLabel       string            `json:"zoomLabel"`
	TickStepMinutes int               `json:"tickStepMinutes"`
}

type selectionResponse struct {
	Kind  string           `json:"kind"`
	IDs   []string         `json:"ids,omitempty"`
	Range *model.TimeRange `json:"range"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	loading, _ := s.session.Loading()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"cachedEvents": s.session.CachedEvents(),
		"loading":      loading,
	})
}

// --- Viewport ---

func (s *Server) viewportResponse(v viewport.Viewport) viewportResponse {
	start, end := v.Range()
	step, label := s.session.TickStep()
	return viewportResponse{
		Viewport:        v,
		StartMs:         start,
		EndMs:           end,
		ZoomLabel:       string(label),
		TickStepMinutes: step,
	}
}

func (s *Server) getViewport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.viewportResponse(s.session.Viewport()))
}

func (s *Server) pan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DX float64 `json:"dx"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.viewportResponse(s.session.Pan(req.DX)))
}

func (s *Server) zoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PixelX float64 `json:"pixelX"`
		Factor float64 `json:"factor"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Factor <= 0 {
		writeError(w, http.StatusBadRequest, "factor must be positive")
		return
	}
	writeJSON(w, http.StatusOK, s.viewportResponse(s.session.ZoomAt(req.PixelX, req.Factor)))
}

func (s *Server) resize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WidthPx int `json:"widthPx"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.WidthPx < 1 {
		writeError(w, http.StatusBadRequest, "widthPx must be at least 1")
		return
	}
	writeJSON(w, http.StatusOK, s.viewportResponse(s.session.Resize(req.WidthPx)))
}

func (s *Server) glue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Glue bool `json:"glue"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.viewportResponse(s.session.SetGlueToNow(req.Glue)))
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var req model.TimeRange
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.viewportResponse(s.session.Navigate(req.StartMs, req.EndMs)))
}

// --- Derived data ---

func (s *Server) getTicks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Ticks())
}

func (s *Server) getIntervals(w http.ResponseWriter, r *http.Request) {
	intervals := s.session.Intervals()
	if intervals == nil {
		intervals = []model.Interval{}
	}
	writeJSON(w, http.StatusOK, intervals)
}

func (s *Server) getAppUsage(w http.ResponseWriter, r *http.Request) {
	data := s.session.Aggregated()
	apps := data.Apps
	if apps == nil {
		apps = []model.AppUsage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalMs": data.Total.Milliseconds(),
		"apps":    apps,
	})
}

func (s *Server) getWindowUsage(w http.ResponseWriter, r *http.Request) {
	data := s.session.Aggregated()
	windows := data.Windows
	if windows == nil {
		windows = []model.WindowUsage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalMs": data.Total.Milliseconds(),
		"windows": windows,
	})
}

// --- Selection ---

func (s *Server) selectionResponse(sel selection.Selection) selectionResponse {
	return selectionResponse{
		Kind:  sel.Kind.String(),
		IDs:   sel.IDs,
		Range: s.session.SelectionRange(),
	}
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.selectionResponse(s.session.Selection()))
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.selectionResponse(s.session.ClearSelection()))
}

func (s *Server) selectRange(w http.ResponseWriter, r *http.Request) {
	var req model.TimeRange
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(s.session.SelectRange(req.StartMs, req.EndMs)))
}

func (s *Server) selectApp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AppID int64 `json:"appId"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(s.session.SelectApp(req.AppID)))
}

func (s *Server) selectRow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntervalID string `json:"intervalId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.IntervalID == "" {
		writeError(w, http.StatusBadRequest, "intervalId is required")
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(s.session.SelectRow(req.IntervalID)))
}

func (s *Server) selectAt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ms float64 `json:"ms"`
	}
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(s.session.SelectAt(req.Ms)))
}

// --- Preview ---

func (s *Server) hover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PixelX float64 `json:"pixelX"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.session.Hover(req.PixelX)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) {
	preview := s.session.Preview()
	if preview == nil {
		writeError(w, http.StatusNotFound, "no preview")
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) getScreenshot(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ts, err := strconv.ParseInt(query.Get("ts"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ts must be a millisecond timestamp")
		return
	}

	var appID *int64
	if raw := query.Get("app"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "app must be an integer id")
			return
		}
		appID = &id
	}

	shot, err := s.screenshots.GetNearestScreenshot(r.Context(), ts, appID)
	if err != nil {
		util.LogError(fmt.Sprintf("Screenshot lookup at %d failed: %v", ts, err))
		writeError(w, http.StatusInternalServerError, "screenshot lookup failed")
		return
	}
	if shot == nil {
		writeError(w, http.StatusNotFound, "no screenshot")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Screenshot-Id", strconv.FormatInt(shot.ID, 10))
	w.Header().Set("X-Screenshot-Created-At", strconv.FormatInt(shot.CreatedAtSec, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(shot.PNG)
}

// decode reads a JSON body into v, answering 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return false
	}
	if err := sonic.Unmarshal(b, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		util.LogError(fmt.Sprintf("Failed to encode response: %v", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
