package internal

import (
	"net/http/httptest"
	"testing"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantLimit  int
		wantOffset int
		wantQ      string
		wantSort   string
	}{
		{name: "defaults", url: "/sites", wantLimit: 50, wantOffset: 0},
		{name: "explicit values", url: "/sites?limit=10&offset=20&q=pump&sort=name", wantLimit: 10, wantOffset: 20, wantQ: "pump", wantSort: "name"},
		{name: "limit capped at 200", url: "/sites?limit=5000", wantLimit: 200},
		{name: "zero limit falls back to default", url: "/sites?limit=0", wantLimit: 50},
		{name: "negative offset ignored", url: "/sites?offset=-5", wantLimit: 50, wantOffset: 0},
		{name: "garbage numbers ignored", url: "/sites?limit=abc&offset=xyz", wantLimit: 50, wantOffset: 0},
		{name: "q is trimmed", url: "/sites?q=%20boiler%20", wantLimit: 50, wantQ: "boiler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := parseListParams(r)
			if got.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", got.limit, tt.wantLimit)
			}
			if got.offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", got.offset, tt.wantOffset)
			}
			if got.q != tt.wantQ {
				t.Errorf("q = %q, want %q", got.q, tt.wantQ)
			}
			if got.sort != tt.wantSort {
				t.Errorf("sort = %q, want %q", got.sort, tt.wantSort)
			}
		})
	}
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{
		"id":         "a.id",
		"name":       "a.name",
		"created_at": "a.created_at",
	}

	tests := []struct {
		name string
		sort string
		want string
	}{
		{name: "empty defaults to id", sort: "", want: " ORDER BY a.id ASC"},
		{name: "single column", sort: "name", want: " ORDER BY a.name ASC"},
		{name: "descending prefix", sort: "-created_at", want: " ORDER BY a.created_at DESC"},
		{name: "multiple columns", sort: "name,-id", want: " ORDER BY a.name ASC, a.id DESC"},
		{name: "unknown keys dropped", sort: "name,password", want: " ORDER BY a.name ASC"},
		{name: "only unknown keys falls back", sort: "password", want: " ORDER BY a.id ASC"},
		{name: "injection attempt falls back", sort: "name;DROP TABLE assets", want: " ORDER BY a.id ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildOrderBy(tt.sort, allowed)
			if got != tt.want {
				t.Errorf("buildOrderBy(%q) = %q, want %q", tt.sort, got, tt.want)
			}
		})
	}
}
