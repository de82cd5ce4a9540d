package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/web3-frozen/aptos-yield-monitor/internal/news"
	"github.com/web3-frozen/aptos-yield-monitor/internal/staking"
	"github.com/web3-frozen/aptos-yield-monitor/internal/store"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

type StakingSource interface {
	Staking(ctx context.Context) *staking.Result
}

type TokenSource interface {
	Tokens(ctx context.Context) *tokens.Market
}

type NewsSource interface {
	News(ctx context.Context) *news.Feed
}

type HistoryReader interface {
	History(ctx context.Context, q store.HistoryQuery) ([]store.Snapshot, error)
}

func Staking(src StakingSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Staking(r.Context()))
	}
}

func Tokens(src TokenSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Tokens(r.Context()))
	}
}

func News(src NewsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.News(r.Context()))
	}
}

// StakingHistory serves recorded APR snapshots. h may be nil when no
// database is configured.
func StakingHistory(h HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil {
			http.Error(w, `{"error":"history not available"}`, http.StatusServiceUnavailable)
			return
		}

		q := store.HistoryQuery{
			Protocol:    r.URL.Query().Get("protocol"),
			ProductType: r.URL.Query().Get("product"),
		}
		if v := r.URL.Query().Get("since"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				http.Error(w, `{"error":"since must be a positive duration like 24h"}`, http.StatusBadRequest)
				return
			}
			q.Since = time.Now().Add(-d)
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, `{"error":"limit must be a positive integer"}`, http.StatusBadRequest)
				return
			}
			q.Limit = n
		}

		rows, err := h.History(r.Context(), q)
		if err != nil {
			http.Error(w, `{"error":"failed to load history"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
