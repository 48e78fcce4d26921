package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Micdiane/arxiv-helper/internal/paper"
)

// openTestDB creates a store in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "papers.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testPaper returns a minimal valid paper with the given id.
func testPaper(id string) *paper.Paper {
	return &paper.Paper{
		ArxivID:         id,
		Version:         1,
		Title:           "Title of " + id,
		Authors:         []string{"Alice Author", "Bob Builder"},
		Abstract:        "Abstract of " + id,
		PrimaryCategory: "cs.LG",
		Categories:      []string{"cs.LG", "cs.AI"},
		PublishedDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedDate:     time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		SourceURL:       "https://arxiv.org/abs/" + id + "v1",
		DocumentURL:     "https://arxiv.org/pdf/" + id + "v1.pdf",
	}
}

// mustUpsert inserts a paper or fails the test.
func mustUpsert(t *testing.T, db *DB, p *paper.Paper) {
	t.Helper()
	if _, err := db.Upsert(p); err != nil {
		t.Fatalf("Upsert(%s): %v", p.ArxivID, err)
	}
}

func TestUpsertCreateAndGet(t *testing.T) {
	db := openTestDB(t)

	p := testPaper("2401.00001")
	outcome, err := db.Upsert(p)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %v, want OutcomeCreated", outcome)
	}

	got, err := db.GetByID("2401.00001")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != p.Title {
		t.Errorf("Title = %q, want %q", got.Title, p.Title)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Alice Author" {
		t.Errorf("Authors = %v, want %v", got.Authors, p.Authors)
	}
	if !got.PublishedDate.Equal(p.PublishedDate) {
		t.Errorf("PublishedDate = %v, want %v", got.PublishedDate, p.PublishedDate)
	}
	if got.IsVectorized {
		t.Error("new paper reports vectorized")
	}
	if got.VectorHandle != nil {
		t.Errorf("new paper has handle %d", *got.VectorHandle)
	}
}

func TestUpsertVersionGate(t *testing.T) {
	db := openTestDB(t)

	p := testPaper("2401.00002")
	p.Version = 2
	mustUpsert(t, db, p)

	older := testPaper("2401.00002")
	older.Version = 1
	older.Title = "Stale Title"
	outcome, err := db.Upsert(older)
	if err != nil {
		t.Fatalf("Upsert older: %v", err)
	}
	if outcome != OutcomeUnchanged {
		t.Errorf("outcome = %v, want OutcomeUnchanged", outcome)
	}

	got, err := db.GetByID("2401.00002")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title == "Stale Title" {
		t.Error("older version overwrote newer record")
	}
}

func TestUpsertChangedAbstractClearsVectorization(t *testing.T) {
	db := openTestDB(t)

	p := testPaper("2401.00003")
	mustUpsert(t, db, p)
	if err := db.MarkVectorized([]HandleAssignment{{ArxivID: p.ArxivID, Handle: 7}}); err != nil {
		t.Fatalf("MarkVectorized: %v", err)
	}

	revised := testPaper("2401.00003")
	revised.Version = 2
	revised.Abstract = "A substantially revised abstract."
	outcome, err := db.Upsert(revised)
	if err != nil {
		t.Fatalf("Upsert revised: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("outcome = %v, want OutcomeUpdated", outcome)
	}

	got, err := db.GetByID("2401.00003")
	if err != nil {
		t.Fatal(err)
	}
	if got.IsVectorized {
		t.Error("vectorized flag survived an abstract change")
	}
	if got.VectorHandle != nil {
		t.Errorf("handle %d survived an abstract change", *got.VectorHandle)
	}
}

func TestUpsertUnchangedAbstractKeepsVectorization(t *testing.T) {
	db := openTestDB(t)

	p := testPaper("2401.00004")
	mustUpsert(t, db, p)
	if err := db.MarkVectorized([]HandleAssignment{{ArxivID: p.ArxivID, Handle: 3}}); err != nil {
		t.Fatalf("MarkVectorized: %v", err)
	}

	// Same abstract, new title: metadata refresh only.
	refresh := testPaper("2401.00004")
	refresh.Version = 2
	refresh.Title = "Corrected Title"
	mustUpsert(t, db, refresh)

	got, err := db.GetByID("2401.00004")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsVectorized {
		t.Error("vectorized flag lost on a metadata-only update")
	}
	if got.VectorHandle == nil || *got.VectorHandle != 3 {
		t.Errorf("handle = %v, want 3", got.VectorHandle)
	}
	if got.Title != "Corrected Title" {
		t.Errorf("Title = %q, want updated", got.Title)
	}
}

func TestUpsertPreservesFavorite(t *testing.T) {
	db := openTestDB(t)

	p := testPaper("2401.00005")
	mustUpsert(t, db, p)
	if _, err := db.ToggleFavorite(p.ArxivID); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}

	update := testPaper("2401.00005")
	update.Version = 2
	mustUpsert(t, db, update)

	got, err := db.GetByID("2401.00005")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsFavorite {
		t.Error("favorite flag lost on ingestion update")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetByID("9999.99999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetByHandle(t *testing.T) {
	db := openTestDB(t)

	p := testPaper("2401.00006")
	mustUpsert(t, db, p)
	if err := db.MarkVectorized([]HandleAssignment{{ArxivID: p.ArxivID, Handle: 42}}); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetByHandle(42)
	if err != nil {
		t.Fatalf("GetByHandle: %v", err)
	}
	if got.ArxivID != p.ArxivID {
		t.Errorf("ArxivID = %q, want %q", got.ArxivID, p.ArxivID)
	}

	if _, err := db.GetByHandle(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("dangling handle: got %v, want ErrNotFound", err)
	}
}

func TestPendingCursor(t *testing.T) {
	db := openTestDB(t)

	for i := 1; i <= 5; i++ {
		mustUpsert(t, db, testPaper(fmt.Sprintf("2401.0000%d", i)))
	}
	if err := db.MarkVectorized([]HandleAssignment{{ArxivID: "2401.00002", Handle: 1}}); err != nil {
		t.Fatal(err)
	}

	pending, err := db.Pending("", 2)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ArxivID != "2401.00001" || pending[1].ArxivID != "2401.00003" {
		t.Fatalf("first page = %v", ids(pending))
	}

	pending, err = db.Pending(pending[1].ArxivID, 10)
	if err != nil {
		t.Fatalf("Pending after cursor: %v", err)
	}
	if len(pending) != 2 || pending[0].ArxivID != "2401.00004" || pending[1].ArxivID != "2401.00005" {
		t.Fatalf("second page = %v", ids(pending))
	}

	pending, err = db.Pending(pending[1].ArxivID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("drained backlog returned %v", ids(pending))
	}
}

func TestMarkAndClearVectorized(t *testing.T) {
	db := openTestDB(t)

	mustUpsert(t, db, testPaper("2401.00007"))
	mustUpsert(t, db, testPaper("2401.00008"))

	err := db.MarkVectorized([]HandleAssignment{
		{ArxivID: "2401.00007", Handle: 1},
		{ArxivID: "2401.00008", Handle: 2},
	})
	if err != nil {
		t.Fatalf("MarkVectorized: %v", err)
	}

	if pending, _ := db.Pending("", 10); len(pending) != 0 {
		t.Errorf("pending after mark = %v", ids(pending))
	}

	if err := db.ClearVectorized([]string{"2401.00007"}); err != nil {
		t.Fatalf("ClearVectorized: %v", err)
	}
	pending, err := db.Pending("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ArxivID != "2401.00007" {
		t.Errorf("pending after clear = %v", ids(pending))
	}
}

func TestListPagination(t *testing.T) {
	db := openTestDB(t)

	for i := 1; i <= 7; i++ {
		p := testPaper(fmt.Sprintf("2401.0001%d", i))
		p.PublishedDate = time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC)
		mustUpsert(t, db, p)
	}

	papers, total, err := db.List(0, 3, SortDate, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if len(papers) != 3 {
		t.Fatalf("page size = %d, want 3", len(papers))
	}
	// Date sort is newest first.
	if papers[0].ArxivID != "2401.00017" {
		t.Errorf("first = %s, want 2401.00017", papers[0].ArxivID)
	}

	papers, total, err = db.List(6, 3, SortDate, false)
	if err != nil {
		t.Fatal(err)
	}
	if total != 7 || len(papers) != 1 {
		t.Errorf("last page: total %d len %d, want 7 and 1", total, len(papers))
	}
}

func TestListFavoritesOnly(t *testing.T) {
	db := openTestDB(t)

	mustUpsert(t, db, testPaper("2401.00021"))
	mustUpsert(t, db, testPaper("2401.00022"))
	if _, err := db.ToggleFavorite("2401.00022"); err != nil {
		t.Fatal(err)
	}

	papers, total, err := db.List(0, 10, SortDate, true)
	if err != nil {
		t.Fatalf("List favorites: %v", err)
	}
	if total != 1 || len(papers) != 1 || papers[0].ArxivID != "2401.00022" {
		t.Errorf("favorites = %v (total %d), want only 2401.00022", ids(papers), total)
	}
}

func TestMatchKeyword(t *testing.T) {
	db := openTestDB(t)

	a := testPaper("2401.00031")
	a.Title = "Graph Neural Networks for Molecules"
	a.Abstract = "We study message passing."
	mustUpsert(t, db, a)

	b := testPaper("2401.00032")
	b.Title = "A Survey of Transformers"
	b.Abstract = "Attention including graph attention variants."
	mustUpsert(t, db, b)

	c := testPaper("2401.00033")
	c.Title = "Unrelated Work"
	c.Abstract = "Nothing relevant here."
	mustUpsert(t, db, c)

	matches, err := db.MatchKeyword("GRAPH")
	if err != nil {
		t.Fatalf("MatchKeyword: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %v, want the two graph papers", ids(matches))
	}

	matches, err = db.MatchKeyword("quantum")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %v, want none", ids(matches))
	}
}

func TestToggleFavorite(t *testing.T) {
	db := openTestDB(t)
	mustUpsert(t, db, testPaper("2401.00041"))

	fav, err := db.ToggleFavorite("2401.00041")
	if err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if !fav {
		t.Error("first toggle: got false, want true")
	}

	fav, err = db.ToggleFavorite("2401.00041")
	if err != nil {
		t.Fatal(err)
	}
	if fav {
		t.Error("second toggle: got true, want false")
	}

	if _, err := db.ToggleFavorite("9999.99999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestCounts(t *testing.T) {
	db := openTestDB(t)

	mustUpsert(t, db, testPaper("2401.00051"))
	mustUpsert(t, db, testPaper("2401.00052"))
	mustUpsert(t, db, testPaper("2401.00053"))
	if err := db.MarkVectorized([]HandleAssignment{{ArxivID: "2401.00051", Handle: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ToggleFavorite("2401.00052"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetLocalPDF("2401.00053", "/tmp/x.pdf"); err != nil {
		t.Fatal(err)
	}

	stats, err := db.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := Stats{Total: 3, Vectorized: 1, Favorites: 1, WithPDF: 1}
	if stats != want {
		t.Errorf("Counts = %+v, want %+v", stats, want)
	}
}

func TestWithoutPDF(t *testing.T) {
	db := openTestDB(t)

	mustUpsert(t, db, testPaper("2401.00061"))
	mustUpsert(t, db, testPaper("2401.00062"))
	if err := db.SetLocalPDF("2401.00061", "/tmp/a.pdf"); err != nil {
		t.Fatal(err)
	}

	papers, err := db.WithoutPDF()
	if err != nil {
		t.Fatalf("WithoutPDF: %v", err)
	}
	if len(papers) != 1 || papers[0].ArxivID != "2401.00062" {
		t.Errorf("WithoutPDF = %v, want only 2401.00062", ids(papers))
	}
}

func ids(papers []paper.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.ArxivID
	}
	return out
}
