package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/lotto-client/engine"
	"github.com/lightlink-network/lotto-client/guard"
	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/lifecycle"
	"github.com/lightlink-network/lotto-client/metrics"
	"github.com/lightlink-network/lotto-client/query"
	"github.com/lightlink-network/lotto-client/types"
	"github.com/lightlink-network/lotto-client/wallet"
)

var account = common.HexToAddress("0x00000000000000000000000000000000000000a1")

type fakeEngine struct {
	mu     sync.Mutex
	err    error
	orders []engine.TicketOrder
	spins  int
	book   *history.Book
	rounds map[types.LotteryType]query.Snapshot
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		book:   history.NewBook(history.BookOpts{}),
		rounds: map[types.LotteryType]query.Snapshot{},
	}
}

func (e *fakeEngine) submission(kind types.OperationKind) (lifecycle.Submission, error) {
	if e.err != nil {
		return lifecycle.Submission{}, e.err
	}
	return lifecycle.Submission{Kind: kind, Hash: common.HexToHash("0x42"), Account: account, Value: big.NewInt(7)}, nil
}

func (e *fakeEngine) State() engine.State {
	return engine.State{Account: account, ClaimableWei: big.NewInt(3), USDPerETH: "3000.00", Recovery: "dormant"}
}

func (e *fakeEngine) EnsureNetwork(context.Context) error {
	return e.err
}

func (e *fakeEngine) Spin(context.Context) (lifecycle.Submission, error) {
	e.mu.Lock()
	e.spins++
	e.mu.Unlock()
	return e.submission(types.Spin)
}

func (e *fakeEngine) BuyTicket(_ context.Context, order engine.TicketOrder) (lifecycle.Submission, error) {
	e.mu.Lock()
	e.orders = append(e.orders, order)
	e.mu.Unlock()
	return e.submission(types.BuyTicket)
}

func (e *fakeEngine) Claim(context.Context) (lifecycle.Submission, error) {
	return e.submission(types.Claim)
}

func (e *fakeEngine) Round(lt types.LotteryType) (query.Snapshot, bool) {
	snap, ok := e.rounds[lt]
	return snap, ok
}

func (e *fakeEngine) Quote(_ context.Context, lt types.LotteryType, quantity int64) (engine.Quote, error) {
	if quantity > engine.MaxTickets {
		return engine.Quote{}, engine.ErrInvalidQuantity
	}
	return engine.Quote{LotteryType: lt, Quantity: quantity, BufferedWei: big.NewInt(99)}, nil
}

func (e *fakeEngine) History() *history.Book {
	return e.book
}

func newTestServer(t *testing.T, eng *fakeEngine, rateLimit int) *Server {
	t.Helper()
	s, err := NewServer(ServerOpts{Engine: eng, Metrics: metrics.New(), RateLimit: rateLimit})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, newFakeEngine(), 0)
	rec := do(t, s, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "online")
}

func TestSpinAccepted(t *testing.T) {
	eng := newFakeEngine()
	s := newTestServer(t, eng, 0)

	rec := do(t, s, http.MethodPost, "/v1/spin", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body submissionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "spin", body.Kind)
	assert.Equal(t, common.HexToHash("0x42"), body.TxHash)
	assert.Equal(t, int64(7), body.ValueWei.Int64())
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{guard.ErrWrongNetwork, http.StatusPreconditionFailed},
		{lifecycle.ErrNoAccount, http.StatusPreconditionFailed},
		{lifecycle.ErrInFlight, http.StatusConflict},
		{engine.ErrSpinning, http.StatusConflict},
		{engine.ErrInvalidQuantity, http.StatusBadRequest},
		{fmt.Errorf("failed to submit spin: %w", wallet.ErrUserRejected), http.StatusForbidden},
		{fmt.Errorf("rpc down"), http.StatusBadGateway},
	}
	for _, c := range cases {
		eng := newFakeEngine()
		eng.err = c.err
		s := newTestServer(t, eng, 0)

		rec := do(t, s, http.MethodPost, "/v1/claim", "")
		assert.Equal(t, c.want, rec.Code, c.err.Error())
		assert.Contains(t, rec.Body.String(), c.err.Error())
	}
}

func TestTicketsDecodesOrder(t *testing.T) {
	eng := newFakeEngine()
	s := newTestServer(t, eng, 0)

	rec := do(t, s, http.MethodPost, "/v1/tickets", `{"lotteryType":1,"quantity":3,"ethAmount":"0.001"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, eng.orders, 1)
	assert.Equal(t, engine.TicketOrder{LotteryType: types.Weekly, Quantity: 3, EthAmount: "0.001"}, eng.orders[0])

	rec = do(t, s, http.MethodPost, "/v1/tickets", `{"lotteryType":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoundGet(t *testing.T) {
	eng := newFakeEngine()
	eng.rounds[types.Biweekly] = query.Snapshot{
		LotteryType: types.Biweekly,
		EndTimeUnix: time.Now().Add(2*time.Hour + 30*time.Second).Unix(),
		PoolWei:     big.NewInt(900),
	}
	s := newTestServer(t, eng, 0)

	rec := do(t, s, http.MethodGet, "/v1/rounds/2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PrizePerWinnerWei *big.Int        `json:"prizePerWinnerWei"`
		Countdown         query.Countdown `json:"countdown"`
		Name              string          `json:"name"`
		PoolWei           *big.Int        `json:"poolWei"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(300), body.PrizePerWinnerWei.Int64())
	assert.Equal(t, int64(2), body.Countdown.Hours)
	assert.Equal(t, "Biweekly", body.Name)
	assert.Equal(t, int64(900), body.PoolWei.Int64())

	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/v1/rounds/monthly", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/rounds/0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/rounds/yearly", "").Code)
}

func TestQuoteGet(t *testing.T) {
	s := newTestServer(t, newFakeEngine(), 0)

	rec := do(t, s, http.MethodGet, "/v1/quote?lotteryType=weekly&quantity=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var q engine.Quote
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&q))
	assert.Equal(t, int64(4), q.Quantity)
	assert.Equal(t, int64(99), q.BufferedWei.Int64())

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/quote?lotteryType=1&quantity=500", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/quote?lotteryType=x", "").Code)
}

func TestWinnersGet(t *testing.T) {
	eng := newFakeEngine()
	var winners []history.Winner
	for i := 0; i < 8; i++ {
		lt := types.Weekly
		if i%2 == 1 {
			lt = types.Monthly
		}
		winners = append(winners, history.Winner{Address: common.BigToAddress(big.NewInt(int64(i + 1))), LotteryType: lt, PrizeWei: big.NewInt(1), RoundID: big.NewInt(1)})
	}
	eng.book.AppendWinners(context.Background(), winners)
	s := newTestServer(t, eng, 0)

	var body map[string][]history.Winner

	rec := do(t, s, http.MethodGet, "/v1/winners?lotteryType=3&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body["winners"], 2)
	assert.Equal(t, types.Monthly, body["winners"][0].LotteryType)

	rec = do(t, s, http.MethodGet, "/v1/winners", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body["winners"], history.DefaultWinnerLimit)
}

func TestStateAndMetrics(t *testing.T) {
	s := newTestServer(t, newFakeEngine(), 0)

	rec := do(t, s, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"usdPerEth":"3000.00"`)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, newFakeEngine(), 2)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/health", "").Code)
	}
	rec := do(t, s, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
