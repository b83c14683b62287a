// README: Civil-date resolution (today / tomorrow / next weekday) in the tenant timezone.
package dates

import (
	"sync"
	"time"

	"resbot/internal/types"
)

// cacheTTL bounds how long a resolved "today" is trusted before re-reading the clock.
const cacheTTL = time.Hour

// Resolver answers relative-date questions against a civil timezone. The
// resolved civil date is cached for up to an hour and dropped eagerly when the
// civil date rolls over.
type Resolver struct {
	loc *time.Location
	now func() time.Time

	mu       sync.Mutex
	cached   types.Date
	cachedAt time.Time
}

func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{loc: loc, now: time.Now}
}

// NewResolverAt is NewResolver with an injectable clock, for tests.
func NewResolverAt(loc *time.Location, now func() time.Time) *Resolver {
	return &Resolver{loc: loc, now: now}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) Today() types.Date {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if !r.cachedAt.IsZero() && now.Sub(r.cachedAt) < cacheTTL {
		// Drop the cache early if the civil date rolled over within the hour.
		if types.DateOf(now.In(r.loc)) == r.cached {
			return r.cached
		}
	}
	r.cached = types.DateOf(now.In(r.loc))
	r.cachedAt = now
	return r.cached
}

func (r *Resolver) Tomorrow() types.Date {
	return r.Today().AddDays(1)
}

func (r *Resolver) DayAfterTomorrow() types.Date {
	return r.Today().AddDays(2)
}

// Next returns the next occurrence of the weekday strictly after today: if
// today is that weekday, the date one week out is returned.
func (r *Resolver) Next(w time.Weekday) types.Date {
	today := r.Today()
	delta := (int(w) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDays(delta)
}

// Now returns the current instant in the resolver's timezone.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

var weekdayNames = [7]string{
	"domingo", "lunes", "martes", "miercoles", "jueves", "viernes", "sabado",
}

// WeekdayName returns the Spanish name of a weekday, diacritic-free to match
// normalized text.
func WeekdayName(w time.Weekday) string {
	return weekdayNames[int(w)%7]
}
