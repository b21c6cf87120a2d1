package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ithailevi/expert/application/services"
	"github.com/ithailevi/expert/pkg/common"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

// KnowledgeHandler handles knowledge base HTTP requests
type KnowledgeHandler struct {
	service *services.KnowledgeService
	logger  *zap.Logger
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(service *services.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		service: service,
		logger:  logger,
	}
}

// AnyResponse is the body of GET /concepts/{conceptID}/any/{relationID}
type AnyResponse struct {
	Concept  string `json:"concept"`
	Relation string `json:"relation"`
	Found    bool   `json:"found"`
	Linked   string `json:"linked,omitempty"`
}

// GetSnapshot handles GET /snapshot. ?format=yaml returns the bare snapshot
// as YAML instead of the JSON envelope.
func (h *KnowledgeHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.Snapshot(r.Context())

	if r.URL.Query().Get("format") == "yaml" {
		data, err := yaml.Marshal(snapshot)
		if err != nil {
			h.fail(w, r, "Failed to encode snapshot", pkgerrors.NewInternalError("failed to encode snapshot").WithCause(err))
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	common.RespondJSON(w, http.StatusOK, snapshot)
}

// ListRelations handles GET /relations
func (h *KnowledgeHandler) ListRelations(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.service.Relations(r.Context()))
}

// DefineRelation handles POST /relations
func (h *KnowledgeHandler) DefineRelation(w http.ResponseWriter, r *http.Request) {
	var cmd services.DefineRelationCommand
	if err := decode(r, &cmd); err != nil {
		common.RespondError(w, err)
		return
	}

	view, err := h.service.DefineRelation(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, "Failed to define relation", err, zap.String("relationID", cmd.ID))
		return
	}
	common.RespondJSON(w, http.StatusCreated, view)
}

// AssertFact handles POST /facts
func (h *KnowledgeHandler) AssertFact(w http.ResponseWriter, r *http.Request) {
	var cmd services.AssertFactCommand
	if err := decode(r, &cmd); err != nil {
		common.RespondError(w, err)
		return
	}

	result, err := h.service.Assert(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, "Failed to assert fact", err,
			zap.String("subject", cmd.Subject),
			zap.String("relation", cmd.Relation),
			zap.String("object", cmd.Object),
		)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}

// GetConcept handles GET /concepts/{conceptID}
func (h *KnowledgeHandler) GetConcept(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Describe(r.Context(), chi.URLParam(r, "conceptID"))
	if err != nil {
		h.fail(w, r, "Failed to describe concept", err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// AnyLinked handles GET /concepts/{conceptID}/any/{relationID}
func (h *KnowledgeHandler) AnyLinked(w http.ResponseWriter, r *http.Request) {
	conceptID := chi.URLParam(r, "conceptID")
	relationID := chi.URLParam(r, "relationID")

	linked, ok, err := h.service.Any(r.Context(), conceptID, relationID)
	if err != nil {
		h.fail(w, r, "Failed to pick linked concept", err)
		return
	}
	common.RespondJSON(w, http.StatusOK, AnyResponse{
		Concept:  conceptID,
		Relation: relationID,
		Found:    ok,
		Linked:   linked,
	})
}

// Query handles GET /relations/{relationID}/query?source=a&source=b[&target=c]
func (h *KnowledgeHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := services.AskQuery{
		Relation: chi.URLParam(r, "relationID"),
		Sources:  r.URL.Query()["source"],
		Target:   r.URL.Query().Get("target"),
	}

	result, err := h.service.Ask(r.Context(), q)
	if err != nil {
		h.fail(w, r, "Failed to answer query", err, zap.String("relationID", q.Relation))
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// fail logs server-side failures at Error and client mistakes at Debug,
// then writes the error response.
func (h *KnowledgeHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	if pkgerrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, fields...)
	} else {
		h.logger.Debug(msg, fields...)
	}
	common.RespondError(w, err)
}

// maxBodyBytes caps request bodies; a fact or relation definition is tiny
const maxBodyBytes = 1 << 20

func decode(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			appErr := pkgerrors.NewValidationError("request body too large").WithCause(err)
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			return appErr
		}
		return pkgerrors.NewValidationError("invalid request body").WithCause(err)
	}
	return nil
}
