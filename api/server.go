package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lightlink-network/lotto-client/engine"
	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/lifecycle"
	"github.com/lightlink-network/lotto-client/metrics"
	"github.com/lightlink-network/lotto-client/query"
	"github.com/lightlink-network/lotto-client/types"
)

// Engine is what the HTTP surface drives.
type Engine interface {
	State() engine.State
	EnsureNetwork(ctx context.Context) error
	Spin(ctx context.Context) (lifecycle.Submission, error)
	BuyTicket(ctx context.Context, order engine.TicketOrder) (lifecycle.Submission, error)
	Claim(ctx context.Context) (lifecycle.Submission, error)
	Round(lt types.LotteryType) (query.Snapshot, bool)
	Quote(ctx context.Context, lt types.LotteryType, quantity int64) (engine.Quote, error)
	History() *history.Book
}

// API server
type Server struct {
	r      chi.Router
	log    *slog.Logger
	engine Engine
	opts   ServerOpts
}

type ServerOpts struct {
	Logger  *slog.Logger
	Port    string
	Engine  Engine
	Metrics *metrics.Metrics
	// RateLimit is the number of requests per minute and IP. Zero uses the default.
	RateLimit int
}

const (
	defaultRateLimit = 120
	shutdownTimeout  = 10 * time.Second
)

// Create API server
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("api server requires an engine")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	s := &Server{
		log:    opts.Logger,
		engine: opts.Engine,
		opts:   opts,
	}
	s.routes()

	return s, nil
}

// StartServer listens until ctx is done, then shuts down gracefully.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.opts.Port,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	s.log.Info("api server stopped")
	return nil
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns ann error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	w.WriteHeader(statusCode)
	err = json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}
