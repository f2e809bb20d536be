package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Analysis and brainstorming
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.AnalyzeHandler)                      // POST - decompose a metaphor
	mux.HandleFunc("/api/metaphors/generate", s.app.AnalysisHandler.GenerateMetaphorsHandler) // POST - brainstorm metaphors for a topic
	mux.HandleFunc("/api/metaphors/identify", s.app.AnalysisHandler.IdentifyMetaphorsHandler) // POST - find metaphors in a text
	mux.HandleFunc("/api/metaphors/reframe", s.app.AnalysisHandler.ReframeHandler)            // POST - propose alternative frames

	// Saved analyses
	mux.HandleFunc("/api/analyses", s.app.AnalysisHandler.ListAnalysesHandler)        // GET - list all
	mux.HandleFunc("/api/analyses/", s.app.AnalysisHandler.AnalysisByMetaphorHandler) // GET/DELETE /{metaphor}

	// Exploration
	mux.HandleFunc("/api/explore", s.app.ExplorerHandler.ExploreHandler)              // POST - explore selected perspectives
	mux.HandleFunc("/api/explore/custom", s.app.ExplorerHandler.ExploreCustomHandler) // POST - explore a user-built mapping set
	mux.HandleFunc("/api/explore/cancel", s.app.ExplorerHandler.CancelHandler)        // POST - cancel in-flight work

	// Comparison
	mux.HandleFunc("/api/compare", s.app.ExplorerHandler.CompareHandler)            // POST - compare explored perspectives
	mux.HandleFunc("/api/compare/notes", s.app.ExplorerHandler.CompareNotesHandler) // PUT - save user notes

	// Per-perspective artifacts (documents, image, PDF download)
	mux.HandleFunc("/api/perspectives/", s.app.ExplorerHandler.PerspectiveRoutesHandler(s.app.DocumentRenderer))

	// Fact editing
	mux.HandleFunc("/api/facts", s.app.FactsHandler.AddFactHandler)                // POST - add a custom fact
	mux.HandleFunc("/api/facts/generate", s.app.FactsHandler.GenerateFactsHandler) // POST - AI-generate more facts
	mux.HandleFunc("/api/facts/reorder", s.app.FactsHandler.ReorderFactHandler)    // POST - move a fact within its domain
	mux.HandleFunc("/api/facts/map", s.app.FactsHandler.MapFactsHandler)           // POST/DELETE - add or remove a mapping

	// Import/export
	mux.HandleFunc("/api/export", s.app.TransferHandler.ExportHandler) // GET - download the full store
	mux.HandleFunc("/api/import", s.app.TransferHandler.ImportHandler) // POST - merge an exported file

	// Status
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)

	// Catch-all for unknown API routes
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return mux
}
