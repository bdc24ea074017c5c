package price

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestSpinQuoteAtThreeThousand(t *testing.T) {
	usd := big.NewRat(1, 2)
	rate := big.NewRat(3000, 1)

	assert.Equal(t, "166666666666666", ToWei(usd, rate).String())
	assert.Equal(t, "168333333333333", BufferedWei(usd, rate, DefaultBufferBps).String())
	assert.Equal(t, "166666666666666", BufferedWei(usd, rate, 0).String())
}

func TestToWeiZeroRate(t *testing.T) {
	assert.Zero(t, ToWei(big.NewRat(1, 1), new(big.Rat)).Sign())
	assert.Zero(t, BufferedWei(big.NewRat(1, 1), nil, 100).Sign())
}

func TestTicketsForAmount(t *testing.T) {
	assert.Equal(t, int64(3), TicketsForAmount(big.NewInt(35), big.NewInt(10)))
	assert.Equal(t, int64(0), TicketsForAmount(big.NewInt(9), big.NewInt(10)))
	assert.Equal(t, int64(0), TicketsForAmount(big.NewInt(9), big.NewInt(0)))
	assert.Equal(t, int64(0), TicketsForAmount(nil, big.NewInt(1)))
}

func TestParseEther(t *testing.T) {
	wei, ok := ParseEther("0.001")
	require.True(t, ok)
	assert.Equal(t, "1000000000000000", wei.String())

	_, ok = ParseEther("-1")
	assert.False(t, ok)
	_, ok = ParseEther("abc")
	assert.False(t, ok)
}

func TestFixed(t *testing.T) {
	f := NewFixed(big.NewRat(3000, 1))
	r := f.USDPerETH()
	r.SetInt64(1)
	assert.Equal(t, "3000", f.USDPerETH().RatString())
}

func TestFeedRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3512.25}}`))
	}))
	defer srv.Close()

	f := NewFeed(FeedOpts{URL: srv.URL})
	assert.Equal(t, "3000", f.USDPerETH().RatString())
	assert.True(t, f.Updated().IsZero())

	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, "14049/4", f.USDPerETH().RatString())
	assert.False(t, f.Updated().IsZero())
}

func TestFeedKeepsLastGoodRate(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2500}}`))
	}))
	defer srv.Close()

	f := NewFeed(FeedOpts{URL: srv.URL})
	require.NoError(t, f.Refresh(context.Background()))

	fail.Store(true)
	require.Error(t, f.Refresh(context.Background()))
	assert.Equal(t, "2500", f.USDPerETH().RatString())
}

func TestFeedRejectsBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum":{"usd":0}}`))
	}))
	defer srv.Close()

	f := NewFeed(FeedOpts{URL: srv.URL, Fallback: big.NewRat(1000, 1)})
	require.Error(t, f.Refresh(context.Background()))
	assert.Equal(t, "1000", f.USDPerETH().RatString())
}

func TestFeedRunStopsOnCancel(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3000}}`))
	}))
	defer srv.Close()

	f := NewFeed(FeedOpts{URL: srv.URL, Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return hits.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
