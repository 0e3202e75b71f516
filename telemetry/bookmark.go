package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction  BookmarkType = "extinction"
	BookmarkBloom       BookmarkType = "bloom"
	BookmarkCrash       BookmarkType = "crash"
	BookmarkSteadyState BookmarkType = "steady_state"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int64        `csv:"tick" json:"tick"`
	Genotype    string       `csv:"genotype" json:"genotype"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"genotype", b.Genotype,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments in one genotype's window stream.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPeak         int  // peak total in recent history
	extinct            bool // total reached zero and has not recovered
	stableWindowsCount int  // consecutive windows with a steady total
	steadyReported     bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady state detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Extinction: population hit zero
		if b := bd.checkExtinction(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Bloom: total > 2x rolling average
		if b := bd.checkBloom(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Crash: dropped >30% from recent peak
		if b := bd.checkCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Steady state: low variance over 5+ windows
		if b := bd.checkSteadyState(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if stats.Total > bd.recentPeak {
		bd.recentPeak = stats.Total
	}
	if stats.Total > 0 {
		bd.extinct = false
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the stored windows oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) *Bookmark {
	if stats.Total > 0 || bd.extinct || bd.recentPeak == 0 {
		return nil
	}
	bd.extinct = true
	bd.stableWindowsCount = 0
	return &Bookmark{
		Type:        BookmarkExtinction,
		Tick:        stats.WindowEndTick,
		Genotype:    stats.Genotype,
		Description: fmt.Sprintf("%s went extinct after peaking at %d cells", stats.Genotype, bd.recentPeak),
	}
}

func (bd *BookmarkDetector) checkBloom(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += float64(h.Total)
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Total) > avg*2.0 && stats.Total >= 10 {
		return &Bookmark{
			Type:        BookmarkBloom,
			Tick:        stats.WindowEndTick,
			Genotype:    stats.Genotype,
			Description: fmt.Sprintf("%d cells is %.1fx average (%.0f)", stats.Total, float64(stats.Total)/avg, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkCrash(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 || stats.Total == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.Total)/float64(bd.recentPeak)
	if drop > 0.30 && stats.Total < bd.recentPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.Total

		return &Bookmark{
			Type:        BookmarkCrash,
			Tick:        stats.WindowEndTick,
			Genotype:    stats.Genotype,
			Description: fmt.Sprintf("Crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Total),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	if stats.Total == 0 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	var sum float64
	for _, h := range recent {
		sum += float64(h.Total)
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := float64(h.Total) - mean
		variance += d * d
	}
	variance /= 4

	// CV^2 < 0.0025 means CV < 5%
	if mean > 0 && variance/(mean*mean) < 0.0025 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 && !bd.steadyReported {
		bd.steadyReported = true
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Tick:        stats.WindowEndTick,
			Genotype:    stats.Genotype,
			Description: fmt.Sprintf("Steady at about %.0f cells over 5+ windows", mean),
		}
	}

	return nil
}
