package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"expenses/internal/core"
)

func TestParseExpenseForm(t *testing.T) {
	form := url.Values{
		"amount":      {" 12,50 "},
		"category":    {" food\x00 "},
		"description": {"lunch\twith\x07 team"},
		"date":        {"2024-01-15 "},
	}
	r := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	in := parseExpenseForm(r)
	if in.Amount != "12,50" || in.Category != "food" || in.Description != "lunch\twith team" || in.Date != "2024-01-15" {
		t.Fatalf("parsed %+v", in)
	}
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		target string
		want   core.ListQuery
	}{
		{"/", core.ListQuery{}},
		{"/?category=food", core.ListQuery{Category: "food"}},
		{"/?category=&from_date=2024-01-01&to_date=2024-01-31", core.ListQuery{FromDate: "2024-01-01", ToDate: "2024-01-31"}},
		{"/?category=+rent+", core.ListQuery{Category: "rent"}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got := parseListQuery(httptest.NewRequest(http.MethodGet, tt.target, nil))
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"42", 42, true},
		{"abc", 0, false},
		{"0", 0, false},
		{"-3", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/edit/x", nil)
		r.SetPathValue("id", tt.value)
		got, ok := pathID(r, "id")
		if got != tt.want || ok != tt.ok {
			t.Errorf("pathID(%q) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInputFromExpense(t *testing.T) {
	e := core.Expense{Amount: core.Money{Cents: 1250}, Category: "food", Description: "x", Date: core.NewDate(2024, 1, 5)}
	in := inputFromExpense(e)
	if in.Amount != "12.50" || in.Date != "2024-01-05" {
		t.Fatalf("got %+v", in)
	}
	if d := defaultExpenseInput(time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)).Date; d != "2024-03-09" {
		t.Fatalf("default date = %q", d)
	}
}
