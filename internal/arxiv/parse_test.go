package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2301.12345v2</id>
    <title>Attention Is
  Still All You Need</title>
    <summary>We revisit the attention
  mechanism with fresh eyes.</summary>
    <published>2024-01-15T18:00:00Z</published>
    <updated>2024-02-01T09:30:00Z</updated>
    <author><name>Jane Doe</name></author>
    <author><name>John Smith</name></author>
    <arxiv:primary_category term="cs.CL"/>
    <category term="cs.CL"/>
    <category term="cs.LG"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.99999v1</id>
    <title>Second Paper</title>
    <summary>Another abstract.</summary>
    <published>2024-01-10T00:00:00Z</published>
    <updated>2024-01-10T00:00:00Z</updated>
    <author><name>Solo Author</name></author>
    <arxiv:primary_category term="cs.CV"/>
    <category term="cs.CV"/>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	papers, err := ParseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}

	p := papers[0]
	if p.ArxivID != "2301.12345" {
		t.Errorf("ArxivID = %q, want 2301.12345", p.ArxivID)
	}
	if p.Version != 2 {
		t.Errorf("Version = %d, want 2", p.Version)
	}
	if p.Title != "Attention Is Still All You Need" {
		t.Errorf("Title = %q (newlines must collapse)", p.Title)
	}
	if p.Abstract != "We revisit the attention mechanism with fresh eyes." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if p.PrimaryCategory != "cs.CL" {
		t.Errorf("PrimaryCategory = %q", p.PrimaryCategory)
	}
	if len(p.Categories) != 2 {
		t.Errorf("Categories = %v", p.Categories)
	}
	wantDate := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	if !p.PublishedDate.Equal(wantDate) {
		t.Errorf("PublishedDate = %v, want %v", p.PublishedDate, wantDate)
	}
	if p.SourceURL != "https://arxiv.org/abs/2301.12345v2" {
		t.Errorf("SourceURL = %q", p.SourceURL)
	}
	if p.DocumentURL != "https://arxiv.org/pdf/2301.12345v2.pdf" {
		t.Errorf("DocumentURL = %q", p.DocumentURL)
	}
}

func TestParseFeedInvalidXML(t *testing.T) {
	if _, err := ParseFeed([]byte("not xml at all <")); err == nil {
		t.Error("want error for invalid XML")
	}
}

func TestParseIDVersion(t *testing.T) {
	tests := []struct {
		in          string
		wantID      string
		wantVersion int
	}{
		{"http://arxiv.org/abs/2301.12345v2", "2301.12345", 2},
		{"http://arxiv.org/abs/2301.12345v10", "2301.12345", 10},
		{"http://arxiv.org/abs/2301.12345", "2301.12345", 1},
		{"2301.12345v3", "2301.12345", 3},
		{"2301.12345", "2301.12345", 1},
		{"http://arxiv.org/abs/", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, version := ParseIDVersion(tt.in)
			if id != tt.wantID || version != tt.wantVersion {
				t.Errorf("ParseIDVersion(%q) = (%q, %d), want (%q, %d)",
					tt.in, id, version, tt.wantID, tt.wantVersion)
			}
		})
	}
}

func TestFetchCategory(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	papers, err := client.FetchCategory(context.Background(), "cs.CL", 36500, 100)
	if err != nil {
		t.Fatalf("FetchCategory: %v", err)
	}
	if gotQuery != "cat:cs.CL" {
		t.Errorf("search_query = %q, want cat:cs.CL", gotQuery)
	}
	if len(papers) != 2 {
		t.Errorf("got %d papers, want 2", len(papers))
	}
}

func TestFetchCategoryCutoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	// Everything in the fixture is older than one day.
	papers, err := client.FetchCategory(context.Background(), "cs.CL", 1, 100)
	if err != nil {
		t.Fatalf("FetchCategory: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("got %d papers, want 0 outside the window", len(papers))
	}
}

func TestFetchCategoryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.FetchCategory(context.Background(), "cs.CL", 7, 10); err == nil {
		t.Error("want error on bad gateway")
	}
}
