package compileservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tensorfuse/fusegen/internal/artifacts"
	"github.com/tensorfuse/fusegen/internal/pipeline"
	"github.com/tensorfuse/fusegen/internal/report"
	"github.com/tensorfuse/fusegen/pkg/compression"
	"github.com/tensorfuse/fusegen/pkg/errors"
	"github.com/tensorfuse/fusegen/pkg/model"
	"github.com/tensorfuse/fusegen/pkg/utils"
)

// Server exposes a pipeline.Runner over HTTP: POST /lower runs one fusion
// document through the pass and persists its artifacts, GET /debug/idgraph
// serves a previously uploaded idgraph dump back out, and GET /healthz
// reports liveness.
type Server struct {
	addr    string
	runner  *pipeline.Runner
	db      *report.Repositories
	storage artifacts.Store
	comp    compression.Compressor
	logger  utils.Logger

	httpServer *http.Server
}

// NewServer creates a Server bound to addr.
func NewServer(addr string, runner *pipeline.Runner, db *report.Repositories, storage artifacts.Store, comp compression.Compressor, logger utils.Logger) *Server {
	return &Server{
		addr:    addr,
		runner:  runner,
		db:      db,
		storage: storage,
		comp:    comp,
		logger:  logger,
	}
}

// Start builds the route table and blocks on ListenAndServe until the
// server is shut down.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/lower", s.handleLower)
	mux.HandleFunc("/debug/idgraph", s.handleDebugIdGraph)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting compile service at http://%s", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleLower decodes a model.LowerRequest body, runs it through the
// pipeline, persists the pass run and its artifacts, and writes a
// model.LowerResponse back.
func (s *Server) handleLower(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.LowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	result, err := s.runner.Run(ctx, req)
	if err != nil {
		resp := model.LowerResponse{
			DocUUID: req.DocUUID,
			Error:   err.Error(),
			Diagnostics: []model.DiagnosticItem{
				{Code: errors.GetErrorCode(err), Message: errors.GetErrorMessage(err)},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(resp)
		return
	}

	result.PassRun.RunAt = time.Now()

	outputFiles := s.uploadArtifacts(ctx, req.DocUUID, result)

	if s.db != nil {
		if err := s.db.PassRun.SaveRun(ctx, &result.PassRun); err != nil {
			s.logger.Error("Failed to save pass run for %s: %v", req.DocUUID, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.LowerResponse{
		DocUUID:     req.DocUUID,
		PassRun:     result.PassRun,
		OutputFiles: outputFiles,
	})
}

// uploadArtifacts stores the rendered kernel and every mode's idgraph dump
// under docUUID's artifact keys, logging (not failing the request) on any
// individual upload error since the lowering result itself already
// succeeded.
func (s *Server) uploadArtifacts(ctx context.Context, docUUID string, result *pipeline.Result) []model.OutputFile {
	if s.storage == nil || s.comp == nil {
		return nil
	}

	var files []model.OutputFile

	if result.RenderedKernel != "" {
		key := artifacts.Key(docUUID, artifacts.KindKernel)
		if err := artifacts.UploadCompressed(ctx, s.storage, docUUID, artifacts.KindKernel, []byte(result.RenderedKernel), s.comp); err != nil {
			s.logger.Error("Failed to upload kernel artifact for %s: %v", docUUID, err)
		} else {
			files = append(files, model.OutputFile{Kind: string(artifacts.KindKernel), Path: key})
		}
	}

	if dump, ok := result.IdGraphDumps["LOOP"]; ok {
		data, err := json.Marshal(dump)
		if err != nil {
			s.logger.Error("Failed to marshal idgraph dump for %s: %v", docUUID, err)
		} else {
			key := artifacts.Key(docUUID, artifacts.KindIdGraphDump)
			if err := artifacts.UploadCompressed(ctx, s.storage, docUUID, artifacts.KindIdGraphDump, data, s.comp); err != nil {
				s.logger.Error("Failed to upload idgraph artifact for %s: %v", docUUID, err)
			} else {
				files = append(files, model.OutputFile{Kind: string(artifacts.KindIdGraphDump), Path: key})
			}
		}
	}

	return files
}

// handleDebugIdGraph serves back the idgraph dump previously uploaded for a
// document's LOOP mode.
func (s *Server) handleDebugIdGraph(w http.ResponseWriter, r *http.Request) {
	docUUID := r.URL.Query().Get("doc")
	if docUUID == "" {
		http.Error(w, "doc query parameter is required", http.StatusBadRequest)
		return
	}

	if s.storage == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}

	data, err := artifacts.DownloadDecompressed(r.Context(), s.storage, docUUID, artifacts.KindIdGraphDump)
	if err != nil {
		http.Error(w, fmt.Sprintf("idgraph dump not found for %s", docUUID), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleHealthz reports whether the service's dependencies are reachable.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			http.Error(w, "database unhealthy: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
