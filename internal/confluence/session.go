package confluence

import "time"

// Session describes one trading session window (UTC) with its pair affinity
// table and quality bonus. The session also drives scan-loop cadence.
type Session struct {
	Name         string
	StartHour    int // inclusive, UTC
	EndHour      int // exclusive, UTC
	OptimalPairs []string
	QualityBonus float64
	ScanInterval time.Duration
}

// The four trading sessions. Overlap is listed before London/New York so it
// wins when windows touch.
var sessions = []Session{
	{
		Name:         "OVERLAP",
		StartHour:    12,
		EndHour:      16,
		OptimalPairs: []string{"EURUSD", "GBPUSD", "USDCAD"},
		QualityBonus: 25,
		ScanInterval: 30 * time.Second,
	},
	{
		Name:         "LONDON",
		StartHour:    7,
		EndHour:      12,
		OptimalPairs: []string{"EURUSD", "GBPUSD", "EURGBP", "USDCHF"},
		QualityBonus: 20,
		ScanInterval: 30 * time.Second,
	},
	{
		Name:         "NEWYORK",
		StartHour:    16,
		EndHour:      21,
		OptimalPairs: []string{"USDCAD", "USDJPY", "EURUSD"},
		QualityBonus: 18,
		ScanInterval: 30 * time.Second,
	},
	{
		Name:         "ASIAN",
		StartHour:    23,
		EndHour:      7,
		OptimalPairs: []string{"USDJPY", "AUDUSD", "NZDUSD"},
		QualityBonus: 10,
		ScanInterval: 60 * time.Second,
	},
}

// offHours is returned outside every session window.
var offHours = Session{
	Name:         "OFF_HOURS",
	QualityBonus: 0,
	ScanInterval: 45 * time.Second,
}

// CurrentSession returns the session active at t (UTC).
func CurrentSession(t time.Time) Session {
	h := t.UTC().Hour()
	for _, s := range sessions {
		if s.StartHour < s.EndHour {
			if h >= s.StartHour && h < s.EndHour {
				return s
			}
		} else if h >= s.StartHour || h < s.EndHour { // wraps midnight
			return s
		}
	}
	return offHours
}

// Optimal reports whether the symbol is in the session's affinity table.
func (s Session) Optimal(symbol string) bool {
	for _, p := range s.OptimalPairs {
		if p == symbol {
			return true
		}
	}
	return false
}
