package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/web3-frozen/aptos-yield-monitor/internal/dashboard"
	"github.com/web3-frozen/aptos-yield-monitor/internal/tokens"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"pct": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" },
	"price": func(p tokens.Price) string {
		if !p.Known {
			return "Unknown"
		}
		return "$" + humanize.CommafWithDigits(p.Value, 4)
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanize.Time(t)
	},
}

var dashboardPage = template.Must(template.New("dashboard.html").Funcs(pageFuncs).ParseFS(templateFS, "templates/dashboard.html"))

type OverviewSource interface {
	Overview(ctx context.Context) *dashboard.Overview
}

// Dashboard renders the HTML overview page.
func Dashboard(src OverviewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := dashboardPage.Execute(&buf, src.Overview(r.Context())); err != nil {
			http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}

// OverviewJSON serves the same data as the page.
func OverviewJSON(src OverviewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Overview(r.Context()))
	}
}
