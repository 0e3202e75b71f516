package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 100), Genotype: "wt", Total: 40})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 300, Genotype: "wt", Total: 0})
	if !hasBookmark(bookmarks, BookmarkExtinction) {
		t.Fatal("expected extinction bookmark")
	}
	if bookmarks[0].Genotype != "wt" {
		t.Errorf("bookmark genotype = %q", bookmarks[0].Genotype)
	}

	// Reported once
	if again := bd.Check(WindowStats{WindowEndTick: 400, Total: 0}); hasBookmark(again, BookmarkExtinction) {
		t.Error("extinction should only be reported once")
	}
}

func TestBookmarkDetector_NeverPresent(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 5; i++ {
		if b := bd.Check(WindowStats{WindowEndTick: int64(i)}); len(b) != 0 {
			t.Fatalf("empty genotype triggered %v", b)
		}
	}
}

func TestBookmarkDetector_Bloom(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 100), Total: 20})
	}

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 500, Total: 90}), BookmarkBloom) {
		t.Error("expected bloom bookmark")
	}
}

func TestBookmarkDetector_Crash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 100), Total: 100})
	}

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 500, Total: 50}), BookmarkCrash) {
		t.Error("expected crash bookmark")
	}
}

func TestBookmarkDetector_SteadyState(t *testing.T) {
	bd := NewBookmarkDetector(10)

	count := 0
	for i := 0; i < 15; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndTick: int64(i * 100), Total: 200 + i%2})
		if hasBookmark(bookmarks, BookmarkSteadyState) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("steady state reported %d times, want 1", count)
	}
}

func TestBookmarkDetector_HistoryOrder(t *testing.T) {
	bd := NewBookmarkDetector(5)
	for i := 0; i < 7; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i)})
	}
	h := bd.getHistory()
	for i := 1; i < len(h); i++ {
		if h[i].WindowEndTick <= h[i-1].WindowEndTick {
			t.Fatalf("history not oldest first: %v", h)
		}
	}
}
