package handler

import (
	"encoding/json"

	"ipregistry/internal/application/models"
	dErrors "ipregistry/pkg/domain-errors"
)

// SubmitRequest creates a new draft application.
type SubmitRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func (r *SubmitRequest) Validate() (models.Kind, error) {
	return models.ParseKind(r.Kind)
}

// TransitionRequest moves an application to a new status.
type TransitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (r *TransitionRequest) Validate() (models.Status, error) {
	return models.ParseStatus(r.Status)
}

// parseListQuery builds a ListFilter from query parameters. scope=all asks
// for every owner; the engine enforces that only admins get it.
func parseListQuery(scope, status, kind, principalID string) (models.ListFilter, error) {
	filter := models.ListFilter{Owner: principalID}
	if scope == "all" {
		filter.Owner = ""
	} else if scope != "" && scope != "own" {
		return models.ListFilter{}, dErrors.New(dErrors.CodeBadRequest, "scope must be own or all")
	}

	if status != "" {
		st, err := models.ParseStatus(status)
		if err != nil {
			return models.ListFilter{}, err
		}
		filter.Status = &st
	}
	if kind != "" {
		k, err := models.ParseKind(kind)
		if err != nil {
			return models.ListFilter{}, err
		}
		filter.Kind = &k
	}
	return filter, nil
}
