package api

import (
	"github.com/clinigraph/clinigraph/pkg/builder"
	"github.com/clinigraph/clinigraph/pkg/compliance"
	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/model"
	"github.com/clinigraph/clinigraph/pkg/retrieval"
)

// IngestRequest builds or extends one jurisdiction graph. Either a raw
// document (extracted via the LLM agents) or pre-extracted requirements and
// triplets must be supplied.
type IngestRequest struct {
	Jurisdiction string              `json:"jurisdiction" validate:"required"`
	Document     string              `json:"document,omitempty"`
	Requirements []model.Requirement `json:"requirements,omitempty"`
	Triplets     []model.Triplet     `json:"triplets,omitempty"`
}

type IngestResponse struct {
	Stats *builder.BuildStats `json:"stats"`
}

type RetrieveRequest struct {
	Jurisdiction string    `json:"jurisdiction" validate:"required"`
	Query        string    `json:"query,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
	TopK         int       `json:"top_k,omitempty"`
}

type RetrieveResponse struct {
	Results []retrieval.Result `json:"results"`
}

type CheckComplianceRequest struct {
	Jurisdiction string                `json:"jurisdiction" validate:"required"`
	Chunks       []model.ProtocolChunk `json:"chunks" validate:"required,min=1"`
}

type CheckComplianceResponse struct {
	Report *model.ComplianceReport `json:"report"`
}

// ProposeFixesRequest runs a compliance check and generates fixes for its
// violations in one call.
type ProposeFixesRequest struct {
	Jurisdiction string                `json:"jurisdiction" validate:"required"`
	Chunks       []model.ProtocolChunk `json:"chunks" validate:"required,min=1"`
}

type ProposeFixesResponse struct {
	Report *model.ComplianceReport `json:"report"`
	Plan   *compliance.FixPlan     `json:"plan"`
}

type GraphStatsResponse struct {
	Jurisdiction string           `json:"jurisdiction"`
	Stats        graph.Statistics `json:"stats"`
}

type GraphDataResponse struct {
	Jurisdiction string              `json:"jurisdiction"`
	Nodes        []model.Requirement `json:"nodes"`
	Edges        []graph.Edge        `json:"edges"`
}

type JurisdictionsResponse struct {
	Jurisdictions []string `json:"jurisdictions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
