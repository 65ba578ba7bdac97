package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/simplexd/internal/config"
	apperrors "github.com/copyleftdev/simplexd/internal/errors"
	"github.com/copyleftdev/simplexd/internal/metrics"
	"github.com/copyleftdev/simplexd/internal/optimization"
	"github.com/copyleftdev/simplexd/internal/optimization/neldermead"
	"github.com/copyleftdev/simplexd/internal/optimization/objectives"
)

// RunState represents the state of an optimization run. It tracks progress,
// status and results, and is safe for concurrent access through the server's
// lock.
type RunState struct {
	ID           string
	Objective    string
	Status       string // "pending", "running", "completed", "failed", "cancelled"
	StartTime    time.Time
	EndTime      *time.Time
	Progress     float64
	BestScore    float64
	BestSolution *optimization.Solution
	Reason       optimization.TerminationReason
	Error        string
	Optimizer    optimization.Optimizer
	CancelFunc   context.CancelFunc
	LastUpdated  time.Time
}

// Server implements the HTTP and JSON-RPC surface of the optimization
// service. It manages runs and provides endpoints to start, monitor and
// cancel them.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector

	runs   map[string]*RunState
	runsMu sync.RWMutex // Protects the runs map
}

// NewServer creates a new server instance with the given config, logger and
// metrics collector.
func NewServer(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		runs:    make(map[string]*RunState),
	}
}

// StartRequest carries the inputs of one optimization run. Optional fields
// fall back to the configured service defaults when omitted; explicit values
// are passed to the algorithm verbatim, out-of-range or not.
type StartRequest struct {
	Objective      string    `json:"objective"`
	XStart         []float64 `json:"x_start"`
	Step           *float64  `json:"step,omitempty"`
	NoImproveThr   *float64  `json:"no_improve_thr,omitempty"`
	NoImproveBreak *int      `json:"no_improv_break,omitempty"`
	MaxIterations  *int      `json:"max_iter,omitempty"`
	Alpha          *float64  `json:"alpha,omitempty"`
	Gamma          *float64  `json:"gamma,omitempty"`
	Rho            *float64  `json:"rho,omitempty"`
	Sigma          *float64  `json:"sigma,omitempty"`
}

// RegisterRoutes attaches the service endpoints to the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/objectives", s.handleObjectives)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string        `json:"jsonrpc"`
		ID      interface{}   `json:"id"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		result, err = s.startFromParams(request.Params)
	case "optimization.status":
		result, err = s.statusFromParams(request.Params)
	case "optimization.cancel":
		err = s.cancelFromParams(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// startFromParams handles the optimization.start JSON-RPC method.
func (s *Server) startFromParams(params []interface{}) (interface{}, error) {
	var req StartRequest
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	return s.start(req)
}

// statusFromParams handles the optimization.status JSON-RPC method.
func (s *Server) statusFromParams(params []interface{}) (interface{}, error) {
	var ref struct {
		OptimizationID string `json:"optimization_id"`
	}
	if err := decodeParams(params, &ref); err != nil {
		return nil, err
	}
	return s.status(ref.OptimizationID)
}

// cancelFromParams handles the optimization.cancel JSON-RPC method.
func (s *Server) cancelFromParams(params []interface{}) error {
	var ref struct {
		OptimizationID string `json:"optimization_id"`
	}
	if err := decodeParams(params, &ref); err != nil {
		return err
	}
	return s.cancel(ref.OptimizationID)
}

// decodeParams maps the first positional JSON-RPC parameter onto dst.
func decodeParams(params []interface{}, dst interface{}) error {
	if len(params) == 0 {
		return fmt.Errorf("missing required parameters")
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return fmt.Errorf("invalid parameter format: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid parameter format: %v", err)
	}
	return nil
}

// start validates the request, builds the optimizer and launches the run in
// a goroutine. It returns the run identifier immediately.
func (s *Server) start(req StartRequest) (interface{}, error) {
	if req.Objective == "" {
		return nil, fmt.Errorf("objective function is required")
	}
	if len(req.XStart) == 0 {
		return nil, fmt.Errorf("x_start is required and must not be empty")
	}

	objective, err := objectives.ByName(req.Objective)
	if err != nil {
		return nil, err
	}

	id := fmt.Sprintf("opt_%d", time.Now().UnixNano())
	nmCfg := s.runConfig(req, id)

	// Count every objective evaluation, including the initial simplex.
	counted := func(x []float64) (float64, error) {
		s.metrics.Evaluations.Inc()
		return objective(x)
	}

	optimizer, err := neldermead.New(counted, req.XStart, nmCfg)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create optimizer")
	}

	ctx, cancel := context.WithCancel(context.Background())

	state := &RunState{
		ID:          id,
		Objective:   req.Objective,
		Status:      "pending",
		StartTime:   time.Now(),
		Optimizer:   optimizer,
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.runsMu.Lock()
	s.runs[id] = state
	s.runsMu.Unlock()

	go s.runOptimization(ctx, state)

	return map[string]interface{}{
		"optimization_id": id,
		"status":          "pending",
	}, nil
}

// runConfig merges request parameters over the configured defaults and wires
// the progress observer for the run with the given id.
func (s *Server) runConfig(req StartRequest, id string) neldermead.Config {
	defaults := s.cfg.Optimization
	cfg := neldermead.Config{
		Step:           defaults.Step,
		NoImproveThr:   defaults.NoImproveThr,
		NoImproveBreak: defaults.NoImproveBreak,
		MaxIterations:  defaults.MaxIterations,
		Alpha:          defaults.Alpha,
		Gamma:          defaults.Gamma,
		Rho:            defaults.Rho,
		Sigma:          defaults.Sigma,
	}

	if req.Step != nil {
		cfg.Step = *req.Step
	}
	if req.NoImproveThr != nil {
		cfg.NoImproveThr = *req.NoImproveThr
	}
	if req.NoImproveBreak != nil {
		cfg.NoImproveBreak = *req.NoImproveBreak
	}
	if req.MaxIterations != nil {
		cfg.MaxIterations = *req.MaxIterations
	}
	if req.Alpha != nil {
		cfg.Alpha = *req.Alpha
	}
	if req.Gamma != nil {
		cfg.Gamma = *req.Gamma
	}
	if req.Rho != nil {
		cfg.Rho = *req.Rho
	}
	if req.Sigma != nil {
		cfg.Sigma = *req.Sigma
	}

	maxIter := cfg.MaxIterations
	cfg.Observer = func(iteration int, bestScore float64) {
		s.metrics.Iterations.Inc()

		s.runsMu.Lock()
		defer s.runsMu.Unlock()
		if state, ok := s.runs[id]; ok {
			if maxIter > 0 {
				state.Progress = float64(iteration) / float64(maxIter)
			}
			state.BestScore = bestScore
			state.LastUpdated = time.Now()
		}
	}

	return cfg
}

// status reports the current state of a run.
func (s *Server) status(id string) (interface{}, error) {
	if id == "" {
		return nil, fmt.Errorf("optimization_id is required")
	}

	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	state, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("optimization not found")
	}

	response := map[string]interface{}{
		"status":      state.Status,
		"objective":   state.Objective,
		"progress":    state.Progress,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}

	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Reason != "" {
		response["termination_reason"] = string(state.Reason)
	}
	if state.Error != "" {
		response["error"] = state.Error
	}

	if state.BestSolution != nil {
		response["best_solution"] = map[string]interface{}{
			"position": state.BestSolution.Position,
			"score":    state.BestSolution.Score,
		}
	}

	if state.Optimizer != nil {
		history := state.Optimizer.History()
		if len(history) > 0 {
			historyData := make([]map[string]interface{}, len(history))
			for i, eval := range history {
				historyData[i] = map[string]interface{}{
					"iteration": eval.Iteration,
					"position":  eval.Solution.Position,
					"score":     eval.Solution.Score,
				}
			}
			response["history"] = historyData
		}

		if best := state.Optimizer.BestSolution(); best != nil {
			response["current_best"] = map[string]interface{}{
				"position": best.Position,
				"score":    best.Score,
			}
		}
	}

	return response, nil
}

// cancel cancels a pending or running optimization.
func (s *Server) cancel(id string) error {
	if id == "" {
		return fmt.Errorf("optimization_id is required")
	}

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("optimization not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel optimization with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	s.metrics.RunsCancelled.Inc()

	s.logger.Info("optimization cancelled", zap.String("optimization_id", id))

	return nil
}

// runOptimization executes the optimization in a goroutine and records the
// outcome on the run state.
func (s *Server) runOptimization(ctx context.Context, state *RunState) {
	started := time.Now()

	s.runsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.runsMu.Unlock()

	s.metrics.RunsStarted.Inc()

	result, err := state.Optimizer.Optimize(ctx)

	s.metrics.RunDuration.Observe(time.Since(started).Seconds())

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			// The cancel handler already moved the state to cancelled; the
			// run goroutine only observes the aborted loop.
			s.logger.Info("optimization stopped",
				zap.String("optimization_id", state.ID),
				zap.Error(ctx.Err()),
			)
			if state.Status != "cancelled" {
				state.Status = "cancelled"
			}
		} else {
			s.logger.Error("optimization failed",
				zap.String("optimization_id", state.ID),
				zap.Error(err),
			)
			state.Status = "failed"
			state.Error = err.Error()
			s.metrics.RunsFailed.Inc()
		}
	} else {
		state.Status = "completed"
		state.Progress = 1.0
		state.BestSolution = result.BestSolution
		state.BestScore = result.BestSolution.Score
		state.Reason = result.Reason

		s.metrics.RunsCompleted.Inc()
		s.logger.Info("optimization completed",
			zap.String("optimization_id", state.ID),
			zap.Int("iterations", result.Iterations),
			zap.Float64("best_score", result.BestSolution.Score),
			zap.String("reason", string(result.Reason)),
		)
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("request error",
		zap.Int("code", code),
		zap.String("message", message),
	)

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close cancels all running optimizations.
func (s *Server) Close() error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	for _, run := range s.runs {
		if run.CancelFunc != nil {
			run.CancelFunc()
		}
	}
	return nil
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.start(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing optimization ID", http.StatusBadRequest)
		return
	}

	result, err := s.status(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing optimization ID", http.StatusBadRequest)
		return
	}

	err := s.cancel(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}

// handleObjectives handles GET /api/v1/objectives.
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"objectives": objectives.Names(),
	})
}
