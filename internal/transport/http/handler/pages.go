package handler

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	pay     *template.Template
	success *template.Template
	failed  *template.Template
	errPage *template.Template
}

func loadPages() *pages {
	funcs := template.FuncMap{"money": formatMoney}
	parse := func(name string) *template.Template {
		return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return &pages{
		pay:     parse("pay.html"),
		success: parse("success.html"),
		failed:  parse("failed.html"),
		errPage: parse("error.html"),
	}
}

type payView struct {
	TransactionID string
	Amount        int64
	ExpiresAt     time.Time
	Error         string
}

type successView struct {
	Title         string
	Message       string
	TransactionID string
	WalletTxRef   string
	Amount        int64
	NewBalance    *int64
}

type failedView struct {
	Title         string
	Message       string
	Reason        string
	TransactionID string
}

type errorView struct {
	Title   string
	Message string
}

func (h *Handler) render(w http.ResponseWriter, status int, t *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		h.log.Error("failed to render page", "err", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, status int, title, message string) {
	h.render(w, status, h.pages.errPage, errorView{Title: title, Message: message})
}

// formatMoney renders minor units as taka with two decimals.
func formatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
