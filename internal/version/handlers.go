package version

import (
	"net/http"

	"github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/pkg/multisig"
)

type Service struct {
	chainID string
}

func NewService(chainID string) *Service {
	return &Service{chainID: chainID}
}

type response struct {
	Version string `json:"version"`
	ChainID string `json:"chain_id"`
}

// Current returns the current version of the API
func (s *Service) Current(w http.ResponseWriter, r *http.Request) {
	err := common.Body(w, &response{Version: multisig.Version, ChainID: s.chainID}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
