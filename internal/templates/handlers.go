package templates

import (
	"encoding/json"
	"net/http"

	com "github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/pkg/multisig"
	tpl "github.com/citizenwallet/multisig/pkg/templates"
	"github.com/go-chi/chi/v5"
)

type Service struct {
	reg *tpl.Registry
}

func NewService(reg *tpl.Registry) *Service {
	return &Service{reg: reg}
}

// List returns every action template with its fields
func (s *Service) List(w http.ResponseWriter, r *http.Request) {
	err := com.BodyMultiple(w, s.reg.List(), nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type renderResponse struct {
	ActionType tpl.ID            `json:"action_type"`
	Msgs       []json.RawMessage `json:"msgs"`
}

// Render previews the messages a template produces for the posted fields
func (s *Service) Render(w http.ResponseWriter, r *http.Request) {
	id := tpl.ID(chi.URLParam(r, "template_id"))

	if _, ok := s.reg.Lookup(id); !ok {
		com.Error(w, http.StatusNotFound, "unknown action type "+string(id), nil)
		return
	}

	var fields tpl.Fields
	err := json.NewDecoder(r.Body).Decode(&fields)
	if err != nil {
		com.ErrorFrom(w, multisig.NewValidationError("fields", "invalid request body"))
		return
	}

	msgs, err := s.reg.Render(id, fields)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	err = com.Body(w, &renderResponse{ActionType: id, Msgs: msgs}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
