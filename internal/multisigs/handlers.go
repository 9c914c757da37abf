package multisigs

import (
	"encoding/json"
	"net/http"

	com "github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/internal/wallet"
	"github.com/citizenwallet/multisig/pkg/draft"
	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/citizenwallet/multisig/pkg/reconcile"
	"github.com/citizenwallet/multisig/pkg/tracker"
	"github.com/go-chi/chi/v5"
)

type Service struct {
	r      *reconcile.Reconciler
	t      *tracker.Tracker
	codeID uint64
	prefix string
}

func NewService(r *reconcile.Reconciler, t *tracker.Tracker, codeID uint64, prefix string) *Service {
	return &Service{
		r:      r,
		t:      t,
		codeID: codeID,
		prefix: prefix,
	}
}

// Get returns the contract metadata of a multisig, used as its navigation label
func (s *Service) Get(w http.ResponseWriter, r *http.Request) {
	addr, err := com.NormalizeAddress(chi.URLParam(r, "multisig_address"), s.prefix)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	info, err := s.r.ContractInfo(r.Context(), addr)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	err = com.Body(w, info, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Create instantiates a new multisig owned by the connected wallet
func (s *Service) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := wallet.FromContext(r.Context())
	if !ok {
		com.ErrorFrom(w, multisig.ErrNotConnected)
		return
	}

	var in draft.InstantiateInput
	err := json.NewDecoder(r.Body).Decode(&in)
	if err != nil {
		com.ErrorFrom(w, multisig.NewValidationError("", draft.RequiredReason))
		return
	}

	d, err := draft.BuildInstantiate(in, s.codeID, s.prefix)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	result, err := s.t.Instantiate(r.Context(), sess, d.ChainMsg(sess.Address()))

	com.Submission(w, result, err)
}
