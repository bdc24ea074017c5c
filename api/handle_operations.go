package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/lotto-client/engine"
	"github.com/lightlink-network/lotto-client/guard"
	"github.com/lightlink-network/lotto-client/lifecycle"
	"github.com/lightlink-network/lotto-client/wallet"
)

type submissionResponse struct {
	Kind     string         `json:"kind"`
	TxHash   common.Hash    `json:"txHash"`
	Account  common.Address `json:"account"`
	ValueWei *big.Int       `json:"valueWei"`
}

func newSubmissionResponse(sub lifecycle.Submission) submissionResponse {
	return submissionResponse{
		Kind:     string(sub.Kind),
		TxHash:   sub.Hash,
		Account:  sub.Account,
		ValueWei: sub.Value,
	}
}

// statusFor maps an operation error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, guard.ErrWrongNetwork), errors.Is(err, lifecycle.ErrNoAccount):
		return http.StatusPreconditionFailed
	case errors.Is(err, lifecycle.ErrInFlight), errors.Is(err, engine.ErrSpinning):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrInvalidLotteryType),
		errors.Is(err, engine.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrUserRejected):
		return http.StatusForbidden
	}
	return http.StatusBadGateway
}

func (s *Server) handleNetworkPost(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.EnsureNetwork(r.Context()); err != nil {
		ERROR(w, statusFor(err), err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSpinPost(w http.ResponseWriter, r *http.Request) {
	sub, err := s.engine.Spin(r.Context())
	if err != nil {
		s.log.Debug("spin rejected", "error", err)
		ERROR(w, statusFor(err), err)
		return
	}
	JSON(w, http.StatusAccepted, newSubmissionResponse(sub))
}

func (s *Server) handleTicketsPost(w http.ResponseWriter, r *http.Request) {
	var order engine.TicketOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		ERROR(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	sub, err := s.engine.BuyTicket(r.Context(), order)
	if err != nil {
		s.log.Debug("ticket purchase rejected", "error", err)
		ERROR(w, statusFor(err), err)
		return
	}
	JSON(w, http.StatusAccepted, newSubmissionResponse(sub))
}

func (s *Server) handleClaimPost(w http.ResponseWriter, r *http.Request) {
	sub, err := s.engine.Claim(r.Context())
	if err != nil {
		s.log.Debug("claim rejected", "error", err)
		ERROR(w, statusFor(err), err)
		return
	}
	JSON(w, http.StatusAccepted, newSubmissionResponse(sub))
}
