// Package main provides the DSCR analyzer API server:
// - property search ranked by debt service coverage ratio
// - comparable discovery with neighborhood fallback
// - saved searches (PostgreSQL) and search analytics (ClickHouse)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dscr-analyzer/internal/analyzer"
	"dscr-analyzer/internal/cache"
	"dscr-analyzer/internal/comps"
	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/idhash"
	"dscr-analyzer/internal/observability"
	"dscr-analyzer/internal/providers/mashvisor"
	"dscr-analyzer/internal/providers/serpapi"
	"dscr-analyzer/internal/providers/stub"
	"dscr-analyzer/internal/providers/zillow"
	"dscr-analyzer/internal/storage"
	chstore "dscr-analyzer/internal/storage/clickhouse"
	"dscr-analyzer/internal/storage/memory"
	"dscr-analyzer/internal/storage/migrations"
	pgstore "dscr-analyzer/internal/storage/postgres"
)

// Server holds the API components.
type Server struct {
	analyzer      *analyzer.Analyzer
	aggregator    *comps.Aggregator
	savedSearches storage.SavedSearchStore
	logger        *log.Logger

	mu        sync.Mutex
	started   time.Time
	searches  int
	compRuns  int
}

func main() {
	// Load .env file if it exists; system env vars win.
	_ = godotenv.Load()

	zillowKey := flag.String("zillow-key", os.Getenv("ZILLOW_API_KEY"), "RapidAPI key for the Zillow listing search")
	zillowHost := flag.String("zillow-host", envOr("ZILLOW_API_HOST", zillow.DefaultHost), "RapidAPI host header for the Zillow listing search")
	mashvisorKey := flag.String("mashvisor-key", os.Getenv("MASHVISOR_API_KEY"), "Mashvisor API key")
	serpapiKey := flag.String("serpapi-key", os.Getenv("SERPAPI_KEY"), "SerpAPI key for average rent fallback")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	useStubs := flag.Bool("use-stubs", false, "Use stub providers instead of live APIs")
	addr := flag.String("addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	maxComps := flag.Int("max-comps", comps.DefaultMaxResults, "Maximum comps returned per request")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if !*useStubs && (*zillowKey == "" || *mashvisorKey == "") {
		logger.Fatal("--zillow-key and --mashvisor-key are required (use --use-stubs to run without live providers)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	savedSearches, events, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		savedSearches: savedSearches,
		logger:        logger,
		started:       time.Now(),
	}

	if *useStubs {
		logger.Println("Using stub providers")
		compSource := stub.NewCompSource()
		server.analyzer = analyzer.New(analyzer.Options{
			Listings: stub.NewListingSource(),
			Rents:    stub.NewRentSource(),
			Events:   events,
			Logger:   log.New(os.Stdout, "[analyzer] ", log.LstdFlags),
		})
		server.aggregator = comps.NewAggregator(comps.AggregatorOptions{
			Direct:        compSource,
			Neighborhoods: compSource,
			Cache:         cache.NewNeighborhoodCache(0),
			MaxResults:    *maxComps,
			Logger:        log.New(os.Stdout, "[comps] ", log.LstdFlags),
		})
	} else {
		mashvisorClient := mashvisor.NewClient(*mashvisorKey)
		var rents analyzer.RentSource
		if *serpapiKey != "" {
			rents = serpapi.NewClient(*serpapiKey)
		} else {
			logger.Println("No SerpAPI key: listings without a rent estimate will be skipped")
		}
		server.analyzer = analyzer.New(analyzer.Options{
			Listings: zillow.NewClient(*zillowKey, zillow.WithHost(*zillowHost)),
			Rents:    rents,
			Events:   events,
			Logger:   log.New(os.Stdout, "[analyzer] ", log.LstdFlags),
		})
		server.aggregator = comps.NewAggregator(comps.AggregatorOptions{
			Direct:        mashvisorClient,
			Neighborhoods: mashvisorClient,
			Cache:         cache.NewNeighborhoodCache(0),
			MaxResults:    *maxComps,
			Logger:        log.New(os.Stdout, "[comps] ", log.LstdFlags),
		})
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	go func() {
		<-ctx.Done()
		logger.Println("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores wires saved-search and search-event storage. In database
// mode migrations run at startup.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.SavedSearchStore, storage.SearchEventStore, func(), error) {
	if useMemory {
		return memory.NewSavedSearchStore(), memory.NewSearchEventStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return pgstore.NewSavedSearchStore(pool), chstore.NewSearchEventStore(chConn), cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/comps", s.handleComps)
	mux.HandleFunc("/api/saved-searches", s.handleSaveSearch)
	mux.HandleFunc("/api/saved-searches/", s.handleListSavedSearches)

	return mux
}

// handleSearch runs a DSCR property search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	results, err := s.analyzer.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	s.searches++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, results)
}

// CompsRequest is the body for POST /api/comps.
type CompsRequest struct {
	Target domain.PropertyFeatures `json:"target"`
	City   string                  `json:"city"`
	State  string                  `json:"state"`
}

// CompsResponse carries scored comps; Message is set when none qualify.
type CompsResponse struct {
	Comps   []domain.ScoredComp `json:"comps"`
	Message string              `json:"message,omitempty"`
}

// handleComps finds and ranks comparables for a target property.
func (s *Server) handleComps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.City == "" || req.State == "" {
		http.Error(w, "city and state are required", http.StatusBadRequest)
		return
	}

	found, err := s.aggregator.FindComps(r.Context(), req.Target, req.City, req.State)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	s.compRuns++
	s.mu.Unlock()

	resp := CompsResponse{Comps: found}
	if len(found) == 0 {
		resp.Comps = []domain.ScoredComp{}
		resp.Message = "no comps found for this property"
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveSearchRequest is the body for POST /api/saved-searches.
type SaveSearchRequest struct {
	Username       string  `json:"username"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	DownPaymentPct float64 `json:"down_payment"`
	InterestRate   float64 `json:"interest_rate"`
	MinPrice       int     `json:"min_price"`
	MaxPrice       int     `json:"max_price"`
}

// handleSaveSearch persists a search for later re-use.
func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SaveSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.City == "" || req.State == "" {
		http.Error(w, "username, city, and state are required", http.StatusBadRequest)
		return
	}

	search := &domain.SavedSearch{
		ID: idhash.ComputeSearchID(
			req.Username, req.City, req.State,
			float64(req.MinPrice), float64(req.MaxPrice), 0,
		),
		Username:       req.Username,
		City:           req.City,
		State:          req.State,
		DownPaymentPct: req.DownPaymentPct,
		InterestRate:   req.InterestRate,
		MinPrice:       req.MinPrice,
		MaxPrice:       req.MaxPrice,
		CreatedAt:      time.Now().UnixMilli(),
	}

	if err := s.savedSearches.Insert(r.Context(), search); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, search)
}

// handleListSavedSearches returns a user's saved searches, newest first.
func (s *Server) handleListSavedSearches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	username := strings.TrimPrefix(r.URL.Path, "/api/saved-searches/")
	if username == "" || strings.Contains(username, "/") {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	searches, err := s.savedSearches.GetByUsername(r.Context(), username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if searches == nil {
		searches = []*domain.SavedSearch{}
	}
	writeJSON(w, http.StatusOK, searches)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Searches int    `json:"searches"`
	CompRuns int    `json:"comp_runs"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).String(),
		Searches: s.searches,
		CompRuns: s.compRuns,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// writeError maps storage and validation errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, storage.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrDuplicateKey):
		http.Error(w, "search already saved", http.StatusConflict)
	default:
		s.logger.Printf("request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// envOr returns the env var's value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
