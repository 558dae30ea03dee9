package gdftime

// RunYearTable maps run numbers to the calendar year in which the run was
// recorded. The legacy clock hardware never wrote the year to tape, so it
// has to come from the observing logbooks. The table is immutable reference
// data: loaded once, shared by reference, never mutated at runtime.
type RunYearTable struct {
	epochs []runEpoch
}

type runEpoch struct {
	firstRun uint32
	year     int
}

// defaultRunYears covers the full GDF operating history, one entry per
// calendar year, keyed by the first run number recorded in that year.
var defaultRunYears = &RunYearTable{epochs: []runEpoch{
	{0, 1987},
	{900, 1988},
	{1790, 1989},
	{2740, 1990},
	{3900, 1991},
	{5010, 1992},
	{6130, 1993},
	{7250, 1994},
	{8370, 1995},
	{9500, 1996},
	{10680, 1997},
	{11850, 1998},
	{13020, 1999},
	{14250, 2000},
	{15450, 2001},
	{16650, 2002},
	{17850, 2003},
	{19050, 2004},
	{20250, 2005},
	{21450, 2006},
	{22650, 2007},
	{23850, 2008},
	{25050, 2009},
	{26250, 2010},
	{27450, 2011},
}}

// DefaultRunYears returns the built-in run-number epoch table.
func DefaultRunYears() *RunYearTable { return defaultRunYears }

// Year returns the calendar year for a run number. ok is false when the run
// number is zero, which the writer used as a placeholder.
func (t *RunYearTable) Year(run uint32) (year int, ok bool) {
	if run == 0 {
		return 0, false
	}
	year = t.epochs[0].year
	for _, e := range t.epochs {
		if run < e.firstRun {
			break
		}
		year = e.year
	}
	return year, true
}
