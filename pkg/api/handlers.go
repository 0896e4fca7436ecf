package api

import (
	"net/http"

	"github.com/clinigraph/clinigraph/pkg/builder"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"jurisdictions": len(s.repo.List()),
	})
}

// handleIngest builds or extends a jurisdiction graph, from a raw document
// or from pre-extracted requirements.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Document == "" && len(req.Requirements) == 0 {
		s.respondError(w, http.StatusBadRequest, "either document or requirements must be provided")
		return
	}

	var (
		stats *builder.BuildStats
		err   error
	)
	if req.Document != "" {
		stats, err = s.builder.IngestDocument(r.Context(), req.Jurisdiction, req.Document)
	} else {
		stats, err = s.builder.Build(r.Context(), req.Jurisdiction, req.Requirements, req.Triplets)
	}
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, IngestResponse{Stats: stats})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Query == "" && len(req.Embedding) == 0 {
		s.respondError(w, http.StatusBadRequest, "either query or embedding must be provided")
		return
	}

	if req.Query != "" {
		res, err := s.retriever.RetrieveText(r.Context(), req.Jurisdiction, req.Query, req.TopK)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, RetrieveResponse{Results: res})
		return
	}

	res, err := s.retriever.Retrieve(r.Context(), req.Jurisdiction, req.Embedding, req.TopK)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, RetrieveResponse{Results: res})
}

func (s *Server) handleCheckCompliance(w http.ResponseWriter, r *http.Request) {
	var req CheckComplianceRequest
	if !s.decode(w, r, &req) {
		return
	}

	report, err := s.checker.CheckCompliance(r.Context(), req.Jurisdiction, req.Chunks)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, CheckComplianceResponse{Report: report})
}

// handleProposeFixes checks compliance and generates a fix plan for every
// violation found.
func (s *Server) handleProposeFixes(w http.ResponseWriter, r *http.Request) {
	var req ProposeFixesRequest
	if !s.decode(w, r, &req) {
		return
	}

	report, err := s.checker.CheckCompliance(r.Context(), req.Jurisdiction, req.Chunks)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	plan, err := s.fixer.ProposeFixes(r.Context(), report, req.Chunks)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ProposeFixesResponse{Report: report, Plan: plan})
}

func (s *Server) handleJurisdictions(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, JurisdictionsResponse{Jurisdictions: s.repo.List()})
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("jurisdiction")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "jurisdiction query parameter required")
		return
	}
	j, err := s.repo.Get(name)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	g, _ := j.View()
	s.respondJSON(w, http.StatusOK, GraphStatsResponse{Jurisdiction: name, Stats: g.Stats()})
}

// handleGraphData returns the full node and edge sets, sized for inspection
// and visualization tooling.
func (s *Server) handleGraphData(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("jurisdiction")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "jurisdiction query parameter required")
		return
	}
	j, err := s.repo.Get(name)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	g, _ := j.View()

	resp := GraphDataResponse{Jurisdiction: name, Edges: g.Edges()}
	for _, id := range g.NodeIDs() {
		if req, ok := g.Node(id); ok {
			resp.Nodes = append(resp.Nodes, *req)
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}
