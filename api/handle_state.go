package api

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/query"
	"github.com/lightlink-network/lotto-client/types"
)

func (s *Server) handleStateGet(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.engine.State())
}

type roundResponse struct {
	query.Snapshot
	Countdown         query.Countdown `json:"countdown"`
	PrizePerWinnerWei *big.Int        `json:"prizePerWinnerWei"`
	Name              string          `json:"name"`
}

func (s *Server) handleRoundGet(w http.ResponseWriter, r *http.Request) {
	lt, err := types.ParseLotteryType(chi.URLParam(r, "lotteryType"))
	if err != nil || !lt.HasRounds() {
		ERROR(w, http.StatusBadRequest, fmt.Errorf("invalid lottery type %q", chi.URLParam(r, "lotteryType")))
		return
	}

	snap, ok := s.engine.Round(lt)
	if !ok {
		ERROR(w, http.StatusServiceUnavailable, fmt.Errorf("%s round not fetched yet", lt))
		return
	}

	JSON(w, http.StatusOK, roundResponse{
		Snapshot:          snap,
		Countdown:         snap.Countdown(time.Now()),
		PrizePerWinnerWei: snap.PrizePerWinner(),
		Name:              lt.String(),
	})
}

func (s *Server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	lt, err := types.ParseLotteryType(r.URL.Query().Get("lotteryType"))
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	quantity, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil {
		quantity = 1
	}

	q, err := s.engine.Quote(r.Context(), lt, quantity)
	if err != nil {
		ERROR(w, statusFor(err), err)
		return
	}
	JSON(w, http.StatusOK, q)
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string][]history.Record{"records": s.engine.History().Records()})
}

func (s *Server) handleWinnersGet(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = history.DefaultWinnerLimit
	}

	raw := r.URL.Query().Get("lotteryType")
	if raw == "" {
		winners := s.engine.History().Winners()
		if len(winners) > limit {
			winners = winners[:limit]
		}
		JSON(w, http.StatusOK, map[string][]history.Winner{"winners": winners})
		return
	}

	lt, err := types.ParseLotteryType(raw)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	JSON(w, http.StatusOK, map[string][]history.Winner{"winners": s.engine.History().WinnersFor(lt, limit)})
}
