package session

import (
	"errors"
	"net/http"
	"time"

	com "github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/internal/services/bridge"
	"github.com/citizenwallet/multisig/internal/wallet"
	"github.com/go-chi/chi/v5"
)

type Service struct {
	c *wallet.Connector
}

func NewService(c *wallet.Connector) *Service {
	return &Service{c: c}
}

type statusResponse struct {
	Status       wallet.Status        `json:"status"`
	Address      string               `json:"address,omitempty"`
	ConnectType  wallet.ConnectType   `json:"connect_type,omitempty"`
	ConnectedAt  *time.Time           `json:"connected_at,omitempty"`
	ConnectTypes []wallet.ConnectType `json:"available_connect_types"`
}

func (s *Service) status() *statusResponse {
	resp := &statusResponse{
		Status:       wallet.StatusNotConnected,
		ConnectTypes: s.c.ConnectTypes(),
	}

	sess, err := s.c.Session()
	if err != nil {
		return resp
	}

	connectedAt := sess.ConnectedAt()

	resp.Status = wallet.StatusConnected
	resp.Address = sess.Address()
	resp.ConnectType = sess.ConnectType()
	resp.ConnectedAt = &connectedAt

	return resp
}

// Get returns the wallet connection status
func (s *Service) Get(w http.ResponseWriter, r *http.Request) {
	err := com.Body(w, s.status(), nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Connect opens a wallet session through the bridge for the given connect type
func (s *Service) Connect(w http.ResponseWriter, r *http.Request) {
	t := wallet.ConnectType(chi.URLParam(r, "connect_type"))

	_, err := s.c.Connect(r.Context(), t)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrUnsupportedConnectType):
			com.Error(w, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, bridge.ErrNoWallets):
			com.Error(w, http.StatusNotFound, err.Error(), nil)
		case errors.Is(err, com.ErrInvalidAddress):
			com.Error(w, http.StatusBadGateway, "wallet returned an address for another network", nil)
		default:
			com.Error(w, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}

	err = com.Body(w, s.status(), nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Disconnect tears down the wallet session
func (s *Service) Disconnect(w http.ResponseWriter, r *http.Request) {
	s.c.Disconnect()

	err := com.Body(w, s.status(), nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
