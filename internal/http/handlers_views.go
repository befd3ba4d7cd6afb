package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"roomledger/internal/core"
)

type balanceResponse struct {
	MemberID string `json:"memberId"`
	Spent    string `json:"spent"`
	Share    string `json:"share"`
	Net      string `json:"net"`
	Settled  bool   `json:"settled"`
}

type settlementResponse struct {
	Total      string            `json:"total"`
	EqualShare string            `json:"equalShare"`
	Balances   []balanceResponse `json:"balances"`
}

type pairwiseResponse struct {
	MemberA  string `json:"memberA"`
	MemberB  string `json:"memberB"`
	SpentA   string `json:"spentA"`
	SpentB   string `json:"spentB"`
	Net      string `json:"net"`
	Debtor   string `json:"debtor,omitempty"`
	Creditor string `json:"creditor,omitempty"`
	Owed     string `json:"owed,omitempty"`
	Even     bool   `json:"even"`
}

type analyticsResponse struct {
	Year          int                       `json:"year"`
	Month         int                       `json:"month"`
	Categories    []categoryTotalResponse   `json:"categories"`
	Contributors  []contributorResponse     `json:"contributors"`
	ApprovalRate  float64                   `json:"approvalRate"`
	ApprovedTotal string                    `json:"approvedTotal"`
	AvgExpense    string                    `json:"avgExpense"`
	MonthlyTrend  []monthlyBucketResponse   `json:"monthlyTrend"`
	Pace          paceResponse              `json:"pace"`
	Highlights    highlightsResponse        `json:"highlights"`
	CategoryShare []categoryShareResponse   `json:"categoryShare"`
	Totals        statusBreakdownResponse   `json:"totals"`
}

type categoryTotalResponse struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type contributorResponse struct {
	MemberID  string `json:"memberId"`
	Purchases int    `json:"purchases"`
	Total     string `json:"total"`
}

type monthlyBucketResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Total string `json:"total"`
}

type categoryShareResponse struct {
	Category string  `json:"category"`
	Amount   string  `json:"amount"`
	Percent  float64 `json:"percent"`
}

type paceResponse struct {
	Last7Total   string   `json:"last7Total"`
	AvgDaily7    string   `json:"avgDaily7"`
	Projected30  string   `json:"projected30"`
	Last30Total  string   `json:"last30Total"`
	Prev30Total  string   `json:"prev30Total"`
	Delta        string   `json:"delta"`
	DeltaPercent *float64 `json:"deltaPercent"`
}

type highlightsResponse struct {
	Largest              *expenseResponse `json:"largest,omitempty"`
	TopCategory          string           `json:"topCategory,omitempty"`
	TopContributor       string           `json:"topContributor,omitempty"`
	MostFrequentCategory string           `json:"mostFrequentCategory,omitempty"`
	LatestApproved       *expenseResponse `json:"latestApproved,omitempty"`
}

type statusBreakdownResponse struct {
	ApprovedCount int    `json:"approvedCount"`
	PendingCount  int    `json:"pendingCount"`
	RejectedCount int    `json:"rejectedCount"`
	ApprovedTotal string `json:"approvedTotal"`
	PendingTotal  string `json:"pendingTotal"`
	RejectedTotal string `json:"rejectedTotal"`
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := s.rooms.GetRoom(r.Context(), roomID); err != nil {
		respondServiceError(w, err)
		return
	}

	settlement, err := s.views.Settlement(r.Context(), roomID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := settlementResponse{
		Total:      formatCents(settlement.Total.Cents),
		EqualShare: formatUnits(settlement.EqualShare),
		Balances:   make([]balanceResponse, 0, len(settlement.Balances)),
	}
	for _, b := range settlement.Balances {
		resp.Balances = append(resp.Balances, balanceResponse{
			MemberID: b.MemberID,
			Spent:    formatCents(b.Spent.Cents),
			Share:    formatUnits(b.Share),
			Net:      formatUnits(b.Net),
			Settled:  b.Settled(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePairwise(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	memberA := strings.TrimSpace(r.URL.Query().Get("a"))
	memberB := strings.TrimSpace(r.URL.Query().Get("b"))
	if memberA == "" || memberB == "" {
		respondError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}

	if _, err := s.rooms.GetRoom(r.Context(), roomID); err != nil {
		respondServiceError(w, err)
		return
	}

	pairwise, err := s.views.Pairwise(r.Context(), roomID, memberA, memberB)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	debtor, creditor, owed, even := pairwise.Owes()
	resp := pairwiseResponse{
		MemberA: pairwise.MemberA,
		MemberB: pairwise.MemberB,
		SpentA:  formatCents(pairwise.SpentA.Cents),
		SpentB:  formatCents(pairwise.SpentB.Cents),
		Net:     formatCents(pairwise.Net.Cents),
		Even:    even,
	}
	if !even {
		resp.Debtor = debtor
		resp.Creditor = creditor
		resp.Owed = formatCents(owed.Cents)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := s.rooms.GetRoom(r.Context(), roomID); err != nil {
		respondServiceError(w, err)
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.views.Analytics(r.Context(), roomID, year, month)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toAnalyticsResponse(year, month, report))
}

// parseYearMonth reads the year and month query parameters, defaulting to the
// current month. Out-of-range values are a caller error.
func parseYearMonth(r *http.Request) (int, time.Month, error) {
	now := time.Now()
	year := now.Year()
	month := int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("invalid month %q", v)
		}
		month = m
	}
	return year, time.Month(month), nil
}

func toAnalyticsResponse(year int, month time.Month, report core.Report) analyticsResponse {
	resp := analyticsResponse{
		Year:          year,
		Month:         int(month),
		ApprovalRate:  report.ApprovalRate,
		ApprovedTotal: formatCents(report.WindowApprovedTotal.Cents),
		AvgExpense:    formatUnits(report.WindowAvgExpense),
		Categories:    make([]categoryTotalResponse, 0, len(report.Categories)),
		Contributors:  make([]contributorResponse, 0, len(report.Contributors)),
		MonthlyTrend:  make([]monthlyBucketResponse, 0, len(report.MonthlyTrend)),
		CategoryShare: make([]categoryShareResponse, 0, len(report.CategoryShare)),
	}

	for _, c := range report.Categories {
		resp.Categories = append(resp.Categories, categoryTotalResponse{
			Category: c.Category,
			Amount:   formatCents(c.Amount.Cents),
		})
	}
	for _, c := range report.Contributors {
		resp.Contributors = append(resp.Contributors, contributorResponse{
			MemberID:  c.MemberID,
			Purchases: c.Purchases,
			Total:     formatCents(c.Total.Cents),
		})
	}
	for _, b := range report.MonthlyTrend {
		resp.MonthlyTrend = append(resp.MonthlyTrend, monthlyBucketResponse{
			Year:  b.Year,
			Month: int(b.Month),
			Total: formatCents(b.Total.Cents),
		})
	}
	for _, c := range report.CategoryShare {
		resp.CategoryShare = append(resp.CategoryShare, categoryShareResponse{
			Category: c.Category,
			Amount:   formatCents(c.Amount.Cents),
			Percent:  c.Percent,
		})
	}

	resp.Pace = paceResponse{
		Last7Total:   formatCents(report.Pace.Last7Total.Cents),
		AvgDaily7:    formatUnits(report.Pace.AvgDaily7),
		Projected30:  formatUnits(report.Pace.Projected30),
		Last30Total:  formatCents(report.Pace.Last30Total.Cents),
		Prev30Total:  formatCents(report.Pace.Prev30Total.Cents),
		Delta:        formatCents(report.Pace.Delta.Cents),
		DeltaPercent: report.Pace.DeltaPercent,
	}

	resp.Highlights = highlightsResponse{
		TopCategory:          report.Highlights.TopCategory,
		TopContributor:       report.Highlights.TopContributor,
		MostFrequentCategory: report.Highlights.MostFrequentCategory,
	}
	if report.Highlights.Largest != nil {
		largest := toExpenseResponse(*report.Highlights.Largest, nil)
		resp.Highlights.Largest = &largest
	}
	if report.Highlights.LatestApproved != nil {
		latest := toExpenseResponse(*report.Highlights.LatestApproved, nil)
		resp.Highlights.LatestApproved = &latest
	}

	resp.Totals = statusBreakdownResponse{
		ApprovedCount: report.Totals.ApprovedCount,
		PendingCount:  report.Totals.PendingCount,
		RejectedCount: report.Totals.RejectedCount,
		ApprovedTotal: formatCents(report.Totals.ApprovedTotal.Cents),
		PendingTotal:  formatCents(report.Totals.PendingTotal.Cents),
		RejectedTotal: formatCents(report.Totals.RejectedTotal.Cents),
	}

	return resp
}
