package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/web3-frozen/aptos-yield-monitor/internal/advisor"
	"github.com/web3-frozen/aptos-yield-monitor/internal/aptos"
	"github.com/web3-frozen/aptos-yield-monitor/internal/dashboard"
)

type WalletAnalyzer interface {
	Wallet(ctx context.Context, addr string) (*dashboard.WalletReport, error)
}

type Recommender interface {
	Recommend(ctx context.Context, amountAPT float64, riskProfile, wallet string) (*advisor.Recommendation, error)
	RiskProfiles() []string
}

func Wallet(a WalletAnalyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := chi.URLParam(r, "address")
		if !aptos.ValidAddress(addr) {
			http.Error(w, `{"error":"Invalid wallet address format"}`, http.StatusBadRequest)
			return
		}

		rep, err := a.Wallet(r.Context(), addr)
		switch {
		case errors.Is(err, aptos.ErrAccountNotFound), errors.Is(err, aptos.ErrNoResources):
			writeError(w, http.StatusNotFound, "Account not found", err)
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "Error analyzing wallet", err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// Recommendations serves GET ?amount=&riskProfile=[&walletAddress=].
func Recommendations(rc Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		amount, err := strconv.ParseFloat(q.Get("amount"), 64)
		profile := q.Get("riskProfile")
		if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 || !slices.Contains(rc.RiskProfiles(), profile) {
			http.Error(w, `{"error":"Invalid parameters. Required: amount (number) and riskProfile (conservative/balanced/aggressive)"}`, http.StatusBadRequest)
			return
		}
		wallet := q.Get("walletAddress")
		if wallet != "" && !aptos.ValidAddress(wallet) {
			http.Error(w, `{"error":"Invalid wallet address format"}`, http.StatusBadRequest)
			return
		}

		rec, err := rc.Recommend(r.Context(), amount, profile, wallet)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Error generating AI recommendation", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
