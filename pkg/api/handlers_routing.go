package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Aaron-1990/line-routing/pkg/routing"
	"github.com/Aaron-1990/line-routing/pkg/validation"
)

// handleRoutings serves the /routings collection.
func (s *Server) handleRoutings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	models, err := s.svc.ListModels(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("list models", err))
		return
	}

	s.respondJSON(w, http.StatusOK, ModelsResponse{Models: models, Count: len(models)})
}

// handleRoutingSubtree dispatches everything under /routings/{modelId}.
//
//	/routings/{modelId}                     GET, PUT, DELETE
//	/routings/{modelId}/validation          GET
//	/routings/{modelId}/order               GET
//	/routings/{modelId}/batches             GET
//	/routings/{modelId}/exists              GET
//	/routings/{modelId}/areas/{areaCode}    PUT
func (s *Server) handleRoutingSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/routings/"), "/")
	parts := strings.Split(rest, "/")

	modelID := parts[0]
	if err := validation.ValidateModelID(modelID); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch len(parts) {
	case 1:
		switch r.Method {
		case http.MethodGet:
			s.getRouting(w, r, modelID)
		case http.MethodPut:
			s.putRouting(w, r, modelID)
		case http.MethodDelete:
			s.deleteRouting(w, r, modelID)
		default:
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}

	case 2:
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		switch parts[1] {
		case "validation":
			s.getValidation(w, r, modelID)
		case "order":
			s.getOrder(w, r, modelID)
		case "batches":
			s.getBatches(w, r, modelID)
		case "exists":
			s.getExists(w, r, modelID)
		default:
			s.respondError(w, http.StatusNotFound, "Not found")
		}

	case 3:
		if parts[1] != "areas" {
			s.respondError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodPut {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.putPredecessors(w, r, modelID, parts[2])

	default:
		s.respondError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) getRouting(w http.ResponseWriter, r *http.Request, modelID string) {
	mr, err := s.svc.FindByModel(r.Context(), modelID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("get routing", err))
		return
	}
	if mr == nil {
		s.respondError(w, http.StatusNotFound, "Routing not found")
		return
	}
	s.respondJSON(w, http.StatusOK, mr)
}

func (s *Server) putRouting(w http.ResponseWriter, r *http.Request, modelID string) {
	if !s.authorizeWrite(w, r) {
		return
	}

	var req validation.RoutingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validation.ValidateRoutingRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	steps := make([]routing.Step, len(req.Steps))
	for i, sr := range req.Steps {
		steps[i] = routing.Step{AreaCode: sr.AreaCode, Predecessors: sr.Predecessors}
	}

	result, err := s.svc.SetRouting(r.Context(), modelID, steps)
	if err != nil {
		if routing.IsInvalidInput(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("replace routing", err))
		return
	}

	// A structurally invalid graph is rejected whole; the result tells
	// the caller exactly which areas broke it.
	if !result.IsValid {
		s.respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) deleteRouting(w http.ResponseWriter, r *http.Request, modelID string) {
	if !s.authorizeWrite(w, r) {
		return
	}

	if err := s.svc.DeleteRouting(r.Context(), modelID); err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("delete routing", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putPredecessors(w http.ResponseWriter, r *http.Request, modelID, areaCode string) {
	if !s.authorizeWrite(w, r) {
		return
	}

	if err := validation.ValidateAreaCode(areaCode); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req validation.PredecessorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validation.ValidatePredecessorsRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.SetPredecessors(r.Context(), modelID, areaCode, req.Predecessors)
	if err != nil {
		if routing.IsInvalidInput(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("set predecessors", err))
		return
	}

	if !result.IsValid {
		s.respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) getValidation(w http.ResponseWriter, r *http.Request, modelID string) {
	result, err := s.svc.ValidateRouting(r.Context(), modelID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("validate routing", err))
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request, modelID string) {
	order, found, err := s.svc.TopologicalOrder(r.Context(), modelID)
	if err != nil {
		if errors.Is(err, routing.ErrCyclicOrder) {
			s.respondError(w, http.StatusInternalServerError, "Stored routing violates ordering invariant")
			return
		}
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("order routing", err))
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "Routing not found")
		return
	}
	s.respondJSON(w, http.StatusOK, OrderResponse{ModelID: modelID, Order: order})
}

func (s *Server) getBatches(w http.ResponseWriter, r *http.Request, modelID string) {
	batches, found, err := s.svc.OrderBatches(r.Context(), modelID)
	if err != nil {
		if errors.Is(err, routing.ErrCyclicOrder) {
			s.respondError(w, http.StatusInternalServerError, "Stored routing violates ordering invariant")
			return
		}
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("order routing batches", err))
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "Routing not found")
		return
	}
	s.respondJSON(w, http.StatusOK, BatchesResponse{ModelID: modelID, Batches: batches})
}

func (s *Server) getExists(w http.ResponseWriter, r *http.Request, modelID string) {
	exists, err := s.svc.HasRouting(r.Context(), modelID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, s.sanitizeError("check routing", err))
		return
	}
	s.respondJSON(w, http.StatusOK, ExistsResponse{ModelID: modelID, Exists: exists})
}
