// Package api serves the coverage engine over HTTP: styled mesh layers,
// cluster frames, insights and highlight resolution for the map client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/cluster"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/engine"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/resolve"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/severity"
	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/pkg/chat"
)

// Options holds the optional collaborators of a Server.
type Options struct {
	Cache       *Cache
	Metrics     *Metrics
	Chat        chat.Client
	CORSOrigins []string
}

type loaded struct {
	snap    *engine.Snapshot
	version string
}

// Server holds the engine and the current snapshot. The snapshot is
// swapped atomically by SetSnapshot.
type Server struct {
	engine  *engine.Engine
	current atomic.Pointer[loaded]
	cache   *Cache
	metrics *Metrics
	chat    chat.Client
	origins []string
}

// NewServer creates a Server over snap.
func NewServer(e *engine.Engine, snap *engine.Snapshot, opts Options) *Server {
	s := &Server{
		engine:  e,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		chat:    opts.Chat,
		origins: opts.CORSOrigins,
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	s.SetSnapshot(snap)
	return s
}

// SetSnapshot replaces the served snapshot and drops cached results.
func (s *Server) SetSnapshot(snap *engine.Snapshot) {
	l := &loaded{snap: snap, version: Version(snap)}
	s.current.Store(l)
	if s.cache != nil {
		s.cache.Reset(l.version)
	}
	if s.metrics != nil {
		s.metrics.Facilities.Set(float64(len(snap.Records)))
	}
	zap.L().Info("api: snapshot set", zap.String("version", l.version), zap.Int("facilities", len(snap.Records)))
}

// Version is a content hash of the snapshot's records and analysis.
func Version(snap *engine.Snapshot) string {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	_ = enc.Encode(snap.Records)
	_ = enc.Encode(snap.Analysis)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/health", s.handleHealth)
	r.Get("/mesh", s.handleMesh)
	r.Route("/clusters", func(cr chi.Router) {
		cr.Get("/", s.handleClusters)
		cr.Get("/{id}/expansion-zoom", s.handleExpansionZoom)
		cr.Get("/{id}/members", s.handleMembers)
	})
	r.Route("/insights", func(ir chi.Router) {
		ir.Get("/regions", s.handleRegionInsights)
		ir.Get("/facilities/{id}", s.handleFacilityInsights)
	})
	r.Get("/regions/stats", s.handleRegionStats)
	r.Get("/specialties", s.handleSpecialties)
	r.Get("/deserts", s.handleDeserts)
	r.Post("/highlight", s.handleHighlight)
	r.Get("/cache/stats", s.handleCacheStats)
	return r
}

func (s *Server) snapshot() *loaded {
	return s.current.Load()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	l := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"facilities": len(l.snap.Records),
		"version":    l.version,
	})
}

// serveCached writes the body cached for key under the version of l,
// computing it with build on a miss.
func (s *Server) serveCached(w http.ResponseWriter, l *loaded, kind, key string, build func() (any, error)) {
	compute := func() ([]byte, error) {
		v, err := build()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "api: encode response")
		}
		return data, nil
	}

	var (
		data []byte
		hit  bool
		err  error
	)
	if s.cache != nil {
		data, hit, err = s.cache.GetOrCompute(l.version, key, compute)
		s.metrics.cacheLookup(kind, hit)
	} else {
		data, err = compute()
	}
	if err != nil {
		zap.L().Error("api: build response failed", zap.String("kind", kind), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleMesh(w http.ResponseWriter, r *http.Request) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode")))
	mode := severity.ParseMode(raw)
	if raw != "" && raw != string(mode) {
		writeError(w, http.StatusBadRequest, "mode must be coverage or desert")
		return
	}
	l := s.snapshot()
	s.serveCached(w, l, "mesh", "mesh/"+string(mode), func() (any, error) {
		cells := s.engine.Mesh(l.snap)
		return s.engine.MeshFeatures(cells, mode), nil
	})
}

// highlightParam reads a comma-separated list of facility ids.
func highlightParam(r *http.Request) *resolve.HighlightSet {
	raw := r.URL.Query().Get("highlight")
	if raw == "" {
		return resolve.NewHighlightSet()
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return resolve.NewHighlightSet(parts...)
}

func (s *Server) clusterResult(l *loaded, r *http.Request, zoom int) *cluster.Result {
	return s.engine.Clusters(l.snap, zoom, highlightParam(r))
}

// bboxParam reads a "west,south,east,north" viewport in degrees. It
// reports false when the parameter is absent.
func bboxParam(r *http.Request) (orb.Bound, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("bbox"))
	if raw == "" {
		return orb.Bound{}, false, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, false, eris.New("bbox needs four values")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, false, eris.Wrapf(err, "bbox value %d", i)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, false, eris.New("bbox must be west,south,east,north")
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, true, nil
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	zoom, err := intParam(r, "zoom", 6)
	if err != nil {
		writeError(w, http.StatusBadRequest, "zoom must be an integer")
		return
	}
	view, hasView, err := bboxParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bbox must be west,south,east,north in degrees")
		return
	}
	l := s.snapshot()
	hl := highlightParam(r)
	key := fmt.Sprintf("clusters/%d/%s", zoom, strings.Join(hl.IDs(), ","))
	if hasView {
		key += fmt.Sprintf("/%g,%g,%g,%g", view.Min[0], view.Min[1], view.Max[0], view.Max[1])
	}
	s.serveCached(w, l, "clusters", key, func() (any, error) {
		if hasView {
			return s.engine.ClustersWithin(l.snap, view, zoom, hl), nil
		}
		return s.engine.Clusters(l.snap, zoom, hl), nil
	})
}

func (s *Server) handleExpansionZoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cluster id must be an integer")
		return
	}
	res := s.clusterResult(s.snapshot(), r, 0)
	writeJSON(w, http.StatusOK, map[string]int{"id": id, "zoom": res.ExpansionZoom(id)})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cluster id must be an integer")
		return
	}
	members := s.clusterResult(s.snapshot(), r, 0).Members(id)
	if len(members) == 0 {
		writeError(w, http.StatusNotFound, "unknown cluster")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleRegionInsights(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	l := s.snapshot()
	key := fmt.Sprintf("insights/regions/%d", limit)
	s.serveCached(w, l, "region_insights", key, func() (any, error) {
		out := s.engine.RegionInsights(l.snap)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	})
}

func (s *Server) handleFacilityInsights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, ok := s.engine.FacilityInsights(s.snapshot().snap, id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown facility")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegionStats(w http.ResponseWriter, _ *http.Request) {
	l := s.snapshot()
	s.serveCached(w, l, "region_stats", "regions/stats", func() (any, error) {
		return l.snap.RegionStats(), nil
	})
}

func (s *Server) handleSpecialties(w http.ResponseWriter, _ *http.Request) {
	l := s.snapshot()
	s.serveCached(w, l, "specialties", "specialties", func() (any, error) {
		return l.snap.Distribution(), nil
	})
}

func (s *Server) handleDeserts(w http.ResponseWriter, _ *http.Request) {
	deserts := s.snapshot().snap.Analysis.MedicalDeserts
	if deserts == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, deserts)
}

type highlightRequest struct {
	Names    []string `json:"names"`
	Question string   `json:"question"`
}

type highlightResponse struct {
	Highlight *resolve.HighlightSet `json:"highlight"`
	Matches   []resolve.Match       `json:"matches"`
	Fit       *cluster.Bounds       `json:"fit,omitempty"`
	Answer    *chat.Response        `json:"answer,omitempty"`
}

// handleHighlight resolves free-text names into a highlight set. A question
// is first sent to the chat backend and its facility names are resolved.
func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var answer *chat.Response
	names := req.Names
	if strings.TrimSpace(req.Question) != "" {
		if s.chat == nil {
			writeError(w, http.StatusServiceUnavailable, "chat backend not configured")
			return
		}
		resp, err := s.ask(r.Context(), req.Question)
		if errors.Is(err, chat.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "chat backend unavailable")
			return
		}
		if err != nil {
			zap.L().Error("api: chat request failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "chat backend request failed")
			return
		}
		answer = resp
		names = append(append([]string{}, names...), resp.FacilityNames...)
	}

	l := s.snapshot()
	set, matches := s.engine.Highlight(l.snap, names)
	if s.metrics != nil {
		s.metrics.HighlightMatches.Observe(float64(set.Len()))
	}

	res := s.engine.Clusters(l.snap, 0, set)
	writeJSON(w, http.StatusOK, highlightResponse{
		Highlight: set,
		Matches:   matches,
		Fit:       res.Fit,
		Answer:    answer,
	})
}

func (s *Server) ask(ctx context.Context, question string) (*chat.Response, error) {
	resp, err := s.chat.Ask(ctx, question)
	if err != nil {
		return nil, eris.Wrap(err, "api: ask chat backend")
	}
	return resp, nil
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
