// Command server exposes the deduplication engine over HTTP. The engine is
// configured once at startup from a TOML manifest; /dedupe runs the pipeline
// over records posted in the request body, and /score scores a single record
// pair under the model of the most recent run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	recordlinkage "github.com/baditaflorin/go_record_linkage"
	logadapter "github.com/baditaflorin/go_record_linkage/internal/adapters/logger"
	"github.com/baditaflorin/go_record_linkage/internal/adapters/normalizer"
	"github.com/baditaflorin/go_record_linkage/internal/config"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// Default configuration
const (
	DefaultPort           = 8080
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultMaxRequestSize = 64 * 1024 * 1024 // 64MB, record sets can be large
	DefaultDedupeTimeout  = 5 * time.Minute
)

var (
	engine    *recordlinkage.Engine
	logger    *logadapter.StdLogger
	inputNorm ports.Normalizer

	// Most recent run result, used by /score. Guarded because /dedupe and
	// /score run on concurrent request goroutines.
	lastMu   sync.RWMutex
	lastRun  *recordlinkage.Result
	dedupeTO time.Duration
)

// RecordPayload is the wire form of a single record.
type RecordPayload struct {
	ID     string              `json:"id"`
	Fields map[string]string   `json:"fields,omitempty"`
	Arrays map[string][]string `json:"arrays,omitempty"`
}

// DedupeRequest carries the record set to deduplicate.
type DedupeRequest struct {
	Records []RecordPayload `json:"records"`
}

// DedupeResponse summarizes a run.
type DedupeResponse struct {
	RunID          string                    `json:"run_id"`
	Records        int                       `json:"records"`
	CandidatePairs int                       `json:"candidate_pairs"`
	Clusters       map[string][]string       `json:"clusters"`
	Assignments    map[string]string         `json:"assignments"`
	Warnings       []recordlinkage.Warning   `json:"warnings,omitempty"`
	BlockingStats  []recordlinkage.RuleStats `json:"blocking_stats,omitempty"`
	Edges          []recordlinkage.Edge      `json:"edges,omitempty"`
	Model          recordlinkage.MatchModel  `json:"model"`
	ProcessingTime string                    `json:"processing_time"`
}

// ScoreRequest carries one record pair to score under the last run's model.
type ScoreRequest struct {
	Left  RecordPayload `json:"left"`
	Right RecordPayload `json:"right"`
}

// ScoreResponse is the match probability of a pair.
type ScoreResponse struct {
	Probability float64 `json:"probability"`
	RunID       string  `json:"run_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func main() {
	port := flag.Int("port", DefaultPort, "HTTP server port")
	manifestPath := flag.String("config", "linkage.toml", "Path to the run manifest (rules, comparisons and input.normalize; input location and output sections are ignored)")
	readTimeout := flag.Duration("read-timeout", DefaultReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", DefaultWriteTimeout, "HTTP write timeout")
	maxRequestSize := flag.Int("max-request-size", DefaultMaxRequestSize, "Maximum request size in bytes")
	dedupeTimeout := flag.Duration("dedupe-timeout", DefaultDedupeTimeout, "Per-request deduplication timeout")
	logFile := flag.String("log-file", "", "Log file path (empty = stdout)")
	flag.Parse()
	dedupeTO = *dedupeTimeout

	var err error
	logger, err = createLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	cfg, err := config.Load(*manifestPath)
	if err != nil {
		logger.Error("Failed to load manifest", "error", err)
		os.Exit(1)
	}
	inputNorm = cfg.Normalizer()
	opts := append(cfg.EngineOptions(), recordlinkage.WithLogger(logger.Logger()))
	engine, err = recordlinkage.New(opts...)
	if err != nil {
		logger.Error("Failed to initialize engine", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting deduplication HTTP server",
		"port", *port,
		"manifest", *manifestPath,
		"read_timeout", *readTimeout,
		"write_timeout", *writeTimeout,
		"max_request_size", *maxRequestSize,
	)

	server := &fasthttp.Server{
		Handler:            requestHandler,
		ReadTimeout:        *readTimeout,
		WriteTimeout:       *writeTimeout,
		MaxRequestBodySize: *maxRequestSize,
		TCPKeepalive:       true,
		TCPKeepalivePeriod: 3 * time.Minute,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("Shutting down server...")
		if err := server.Shutdown(); err != nil {
			logger.Error("Error during server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	logger.Info("Server listening", "address", fmt.Sprintf(":%d", *port))
	if err := server.ListenAndServe(fmt.Sprintf(":%d", *port)); err != nil {
		logger.Error("Server error", "error", err)
	}

	<-idleConnsClosed
	logger.Info("Server stopped")
}

// requestHandler is the main fasthttp request handler
func requestHandler(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.Response.Header.Set("Server", "LinkageServer")

	switch string(ctx.Path()) {
	case "/health":
		handleHealthCheck(ctx)
	case "/dedupe":
		handleDedupe(ctx)
	case "/score":
		handleScore(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeJSONError(ctx, "Not found")
	}

	logger.Info("Request processed",
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

// handleDedupe runs the full pipeline over the posted record set.
func handleDedupe(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}

	var req DedupeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "Invalid request: "+err.Error())
		return
	}
	if len(req.Records) == 0 {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "At least one record is required")
		return
	}

	records := make([]recordlinkage.Record, len(req.Records))
	for i, p := range req.Records {
		records[i] = recordlinkage.Record{ID: p.ID, Fields: p.Fields, Arrays: p.Arrays}
	}
	if inputNorm != nil {
		normalizer.Apply(inputNorm, records)
	}

	c, cancel := context.WithTimeout(context.Background(), dedupeTO)
	defer cancel()

	result, err := engine.Dedupe(c, records)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
		writeJSONError(ctx, "Deduplication failed: "+err.Error())
		return
	}

	lastMu.Lock()
	lastRun = result
	lastMu.Unlock()

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, DedupeResponse{
		RunID:          result.RunID,
		Records:        result.Records,
		CandidatePairs: result.CandidatePairs,
		Clusters:       result.Clusters,
		Assignments:    result.Assignments,
		Warnings:       result.Warnings,
		BlockingStats:  result.BlockingStats,
		Edges:          result.Edges,
		Model:          result.Model,
		ProcessingTime: result.Duration.String(),
	})
}

// handleScore scores a single pair under the last trained model.
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

	lastMu.RLock()
	run := lastRun
	lastMu.RUnlock()
	if run == nil {
		ctx.SetStatusCode(fasthttp.StatusConflict)
		writeJSONError(ctx, "No trained model yet; POST /dedupe first")
		return
	}

	pair := []recordlinkage.Record{
		{ID: req.Left.ID, Fields: req.Left.Fields, Arrays: req.Left.Arrays},
		{ID: req.Right.ID, Fields: req.Right.Fields, Arrays: req.Right.Arrays},
	}
	if inputNorm != nil {
		normalizer.Apply(inputNorm, pair)
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, ScoreResponse{
		Probability: run.ScorePair(pair[0], pair[1]),
		RunID:       run.RunID,
	})
}

// Helper functions

// writeJSONResponse writes a JSON response to the context
func writeJSONResponse(ctx *fasthttp.RequestCtx, data interface{}) {
	response, err := json.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		logger.Error("Error marshaling JSON response", "error", err)
		writeJSONError(ctx, "Internal server error")
		return
	}

	ctx.SetBody(response)
}

// writeJSONError writes a JSON error response to the context
func writeJSONError(ctx *fasthttp.RequestCtx, message string) {
	response, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		logger.Error("Error marshaling JSON error response", "error", err)
		ctx.SetBodyString(`{"error":"Internal server error"}`)
		return
	}

	ctx.SetBody(response)
}

// createLogger creates and configures a JSON logger
func createLogger(logFile string) (*logadapter.StdLogger, error) {
	var output io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
	}

	logger, err := logadapter.NewJSONLogger(output)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
