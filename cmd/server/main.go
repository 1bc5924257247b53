// Server exposing the code similarity engine over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/baditaflorin/l"
	"github.com/valyala/fasthttp"

	codesimilarity "github.com/baditaflorin/go_code_similarity"
	"github.com/baditaflorin/go_code_similarity/internal/adapters/logger"
	"github.com/baditaflorin/go_code_similarity/internal/adapters/normalizer"
	"github.com/baditaflorin/go_code_similarity/internal/warmup"
)

// Default configuration
const (
	DefaultPort           = 8080
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultMaxRequestSize = 10 * 1024 * 1024 // 10MB
	DefaultConcurrency    = 0                // 0 means use GOMAXPROCS
	compareTimeout        = 60 * time.Second
)

var (
	// Comparison engine with default options, shared by all handlers
	engine *codesimilarity.Engine

	// Shared normalizer for corpus payloads
	norm = normalizer.NewSourceNormalizer()

	// Logger instance
	log l.Logger
)

// ScoreRequest asks for the exact similarity of two texts.
type ScoreRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

// ScoreResponse reports one pairwise score.
type ScoreResponse struct {
	Score float64 `json:"score"`
}

// CorpusRequest asks for all qualifying pairs within a fragment corpus.
type CorpusRequest struct {
	Fragments     []FragmentPayload `json:"fragments"`
	MinSimilarity float64           `json:"min_similarity,omitempty"`
	MinLines      int               `json:"min_lines,omitempty"`
	Raw           bool              `json:"raw,omitempty"`
}

// FragmentPayload is one fragment in a corpus request.
type FragmentPayload struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
}

// PairResponse is one qualifying pair in a corpus response.
type PairResponse struct {
	PathA    string  `json:"path_a"`
	StartA   int     `json:"start_line_a"`
	PathB    string  `json:"path_b"`
	StartB   int     `json:"start_line_b"`
	Score    float64 `json:"score"`
	RawScore float64 `json:"raw_score"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func main() {
	// Parse command-line flags
	port := flag.Int("port", DefaultPort, "HTTP server port")
	readTimeout := flag.Duration("read-timeout", DefaultReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", DefaultWriteTimeout, "HTTP write timeout")
	maxRequestSize := flag.Int("max-request-size", DefaultMaxRequestSize, "Maximum request size in bytes")
	concurrency := flag.Int("concurrency", DefaultConcurrency, "Maximum number of concurrent requests (0 = GOMAXPROCS)")
	warmUp := flag.Bool("warm-up", true, "Perform system warm-up on startup")
	logFile := flag.String("log-file", "", "Log file path (empty = stdout)")
	flag.Parse()

	// Set up logger
	var err error
	log, err = createLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting code similarity server",
		"port", *port,
		"read_timeout", *readTimeout,
		"write_timeout", *writeTimeout,
		"max_request_size", *maxRequestSize,
		"concurrency", *concurrency,
	)

	initEngine(*warmUp)

	// Create HTTP server with fasthttp
	server := &fasthttp.Server{
		Handler:               requestHandler,
		ReadTimeout:           *readTimeout,
		WriteTimeout:          *writeTimeout,
		MaxRequestBodySize:    *maxRequestSize,
		Concurrency:           *concurrency,
		DisableKeepalive:      false,
		TCPKeepalive:          true,
		TCPKeepalivePeriod:    3 * time.Minute,
		MaxIdleWorkerDuration: 10 * time.Second,
		Logger:                nil, // we handle logging ourselves
	}

	// Set up graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down server...")
		if err := server.Shutdown(); err != nil {
			log.Error("Error during server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	log.Info("Server listening", "address", fmt.Sprintf(":%d", *port))
	if err := server.ListenAndServe(fmt.Sprintf(":%d", *port)); err != nil {
		log.Error("Server error", "error", err)
	}

	<-idleConnsClosed
	log.Info("Server stopped")
}

// initEngine builds the shared engine and optionally warms it up.
func initEngine(warmUp bool) {
	var err error
	engine, err = codesimilarity.New(
		codesimilarity.WithLogger(log),
	)
	if err != nil {
		log.Error("Failed to initialize comparison engine", "error", err)
		os.Exit(1)
	}

	if warmUp {
		manager := warmup.NewManager(logger.FromExisting(log), warmup.DefaultConfig())
		manager.RegisterComparer(engine)
		manager.RegisterNormalizer(norm)
		manager.WarmUp(context.Background())
	}

	log.Info("Comparison engine initialized",
		"warm_up", warmUp,
		"cpus", runtime.NumCPU(),
	)
}

// requestHandler is the main fasthttp request handler
func requestHandler(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.Response.Header.Set("Server", "CodeSimilarityServer")

	switch string(ctx.Path()) {
	case "/health":
		handleHealthCheck(ctx)
	case "/score":
		handleScore(ctx)
	case "/corpus":
		handleCorpus(ctx, 0)
	case "/duplicates":
		handleCorpus(ctx, codesimilarity.DuplicateThreshold)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeJSONError(ctx, "Not found")
	}

	log.Info("Request processed",
		"method", string(ctx.Method()),
		"path", string(ctx.Path()),
		"status", ctx.Response.StatusCode(),
		"ip", ctx.RemoteIP().String(),
		"duration", time.Since(startTime),
	)
}

// handleHealthCheck responds to health check requests
func handleHealthCheck(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleScore scores a single pair of texts.
func handleScore(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}

	var req ScoreRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "Invalid request: "+err.Error())
		return
	}

	c, cancel := context.WithTimeout(context.Background(), compareTimeout)
	defer cancel()

	fragments := []codesimilarity.Fragment{
		{Path: "a", StartLine: 1, EndLine: 1, Raw: req.A, Normalized: req.A},
		{Path: "b", StartLine: 1, EndLine: 1, Raw: req.B, Normalized: req.B},
	}
	results, err := engine.CompareAll(c, fragments)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, err.Error())
		return
	}

	resp := ScoreResponse{}
	if len(results) > 0 {
		resp.Score = results[0].Score
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, resp)
}

// handleCorpus compares every fragment pair in the request body. A
// non-zero minimum overrides the threshold in the request.
func handleCorpus(ctx *fasthttp.RequestCtx, minimum float64) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}

	var req CorpusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "Invalid request: "+err.Error())
		return
	}
	if len(req.Fragments) < 2 {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "At least two fragments are required")
		return
	}
	if req.MinSimilarity < 0 || req.MinSimilarity > 100 {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "min_similarity must be between 0 and 100")
		return
	}
	if minimum > 0 {
		req.MinSimilarity = minimum
	}

	c, cancel := context.WithTimeout(context.Background(), compareTimeout)
	defer cancel()

	opts := []codesimilarity.Option{
		codesimilarity.WithLogger(log),
		codesimilarity.WithMinSimilarity(req.MinSimilarity),
		codesimilarity.WithMinLines(req.MinLines),
	}
	if req.Raw {
		opts = append(opts, codesimilarity.WithRawText())
	}
	corpusEngine, err := codesimilarity.New(opts...)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, err.Error())
		return
	}

	fragments := make([]codesimilarity.Fragment, len(req.Fragments))
	for i, f := range req.Fragments {
		fragments[i] = codesimilarity.Fragment{
			Path:       f.Path,
			StartLine:  f.StartLine,
			EndLine:    f.EndLine,
			Raw:        f.Text,
			Normalized: norm.Normalize(f.Text),
		}
	}

	results, err := corpusEngine.CompareAllParallel(c, fragments)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, err.Error())
		return
	}

	pairs := make([]PairResponse, len(results))
	for i, r := range results {
		pairs[i] = PairResponse{
			PathA:    r.A.Path,
			StartA:   r.A.StartLine,
			PathB:    r.B.Path,
			StartB:   r.B.StartLine,
			Score:    r.Score,
			RawScore: r.RawScore,
		}
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, pairs)
}

// writeJSONResponse marshals a response body onto the request context.
func writeJSONResponse(ctx *fasthttp.RequestCtx, response interface{}) {
	data, err := json.Marshal(response)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, "Failed to encode response")
		return
	}
	ctx.SetBody(data)
}

// writeJSONError writes an error response body.
func writeJSONError(ctx *fasthttp.RequestCtx, msg string) {
	data, _ := json.Marshal(ErrorResponse{Error: msg})
	ctx.SetBody(data)
}

// createLogger builds the process logger, writing to logFile when set.
func createLogger(logFile string) (l.Logger, error) {
	output := os.Stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		output = f
	}

	return l.NewStandardFactory().CreateLogger(l.Config{
		Output:      output,
		JsonFormat:  logFile != "",
		AsyncWrite:  true,
		BufferSize:  1024 * 1024,      // 1MB buffer
		MaxFileSize: 10 * 1024 * 1024, // 10MB max file size
		MaxBackups:  5,
		AddSource:   true,
		Metrics:     true,
	})
}
