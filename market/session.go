package market

import "time"

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Session is a daily trading window in IST minutes since midnight.
type Session struct {
	OpenMinute   int
	CloseMinute  int
	WeekdaysOnly bool
}

var (
	// CryptoSession runs 09:00-23:00 IST every day.
	CryptoSession = Session{OpenMinute: 9 * 60, CloseMinute: 23 * 60}

	// StockSession is the NSE cash session, 09:15-15:30 IST Mon-Fri.
	StockSession = Session{OpenMinute: 9*60 + 15, CloseMinute: 15*60 + 30, WeekdaysOnly: true}
)

// SessionFor returns the scan window for a market tag.
func SessionFor(t Tag) Session {
	if t.IsCrypto() {
		return CryptoSession
	}
	return StockSession
}

// IsOpen reports whether t falls inside the session.
func (s Session) IsOpen(t time.Time) bool {
	ist := t.In(IST)
	if s.WeekdaysOnly {
		if wd := ist.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	hm := ist.Hour()*60 + ist.Minute()
	return hm >= s.OpenMinute && hm < s.CloseMinute
}
