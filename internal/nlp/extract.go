// README: Deterministic entity extraction (dates, times, quantities, phones, emails, amounts, durations).
package nlp

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"resbot/internal/dates"
	"resbot/internal/types"
)

type EntityType string

const (
	EntityDate     EntityType = "date"
	EntityTime     EntityType = "time"
	EntityQuantity EntityType = "quantity"
	EntityPhone    EntityType = "phone"
	EntityEmail    EntityType = "email"
	EntityAmount   EntityType = "amount"
	EntityDuration EntityType = "duration"
)

// Entity is a typed, position-tagged extraction from a normalized message.
type Entity struct {
	Type       EntityType
	Value      string
	Original   string
	Start, End int
	Confidence float64
	Metadata   map[string]string
}

// Extractor turns normalized text into a non-overlapping, ordered entity list.
// Extraction passes run from most to least specific; a span claimed by an
// earlier pass is never re-claimed by a later one.
type Extractor struct {
	dates *dates.Resolver
}

func NewExtractor(r *dates.Resolver) *Extractor {
	return &Extractor{dates: r}
}

var (
	reEmail = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

	reTimeHHMM   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	reTimeAMPM   = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\.?\b`)
	reTimePhrase = regexp.MustCompile(`\b(?:a las?|para las?)\s+(\d{1,2})(?:\s+y\s+(media|cuarto))?(?:\s+(?:de la|de el|del|en la)\s+(mañana|tarde|noche|madrugada))?`)
	reTimeOfDay  = regexp.MustCompile(`\b(\d{1,2})\s+(?:de la|en la)\s+(mañana|tarde|noche|madrugada)`)

	reDateRelative = regexp.MustCompile(`\b(pasado mañana|mañana|hoy|ayer)\b`)
	reDateWeekday  = regexp.MustCompile(`\b(?:el |este |proximo )*(lunes|martes|miercoles|jueves|viernes|sabado|domingo)\b`)
	reDateExplicit = regexp.MustCompile(`\b(\d{1,2})\s+de\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)(?:\s+de(?:l)?\s+(\d{4}))?`)

	reDurHalf   = regexp.MustCompile(`\bmedia hora\b`)
	reDurHour90 = regexp.MustCompile(`\b(?:una )?hora y media\b`)
	reDurHours  = regexp.MustCompile(`\b(\d{1,2})\s*horas?\b(?:\s*y media)?`)
	reDurMins   = regexp.MustCompile(`\b(\d{1,3})\s*minutos?\b`)

	reAmountSign   = regexp.MustCompile(`\$\s?(\d+(?:[.,]\d{3})*)`)
	reAmountScaled = regexp.MustCompile(`\b(\d+(?:[.,]\d+)?)\s*(mil|millones|millon)\b(?:\s*de pesos| pesos)?`)
	reAmountPesos  = regexp.MustCompile(`\b(\d+(?:[.,]\d{3})*)\s*pesos\b`)

	rePhone = regexp.MustCompile(`\+?\d(?:[\d\s\-.]{5,17})\d`)

	reQtyContext = regexp.MustCompile(`\b(\d{1,3}|` + spelledAlt + `)\s+(?:personas?|comensales|invitados|puestos)\b`)
	reQtyLead    = regexp.MustCompile(`\b(?:para|somos|seremos)\s+(\d{1,3}|` + spelledAlt + `)\b`)
)

var weekdayIndex = map[string]time.Weekday{
	"domingo": time.Sunday, "lunes": time.Monday, "martes": time.Tuesday,
	"miercoles": time.Wednesday, "jueves": time.Thursday, "viernes": time.Friday,
	"sabado": time.Saturday,
}

var monthIndex = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June, "julio": time.July,
	"agosto": time.August, "septiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

// Extract runs all passes over the text and returns entities sorted by position.
func (e *Extractor) Extract(text string) []Entity {
	var ents []Entity

	add := func(ent Entity) {
		for _, prev := range ents {
			if ent.Start < prev.End && prev.Start < ent.End {
				return
			}
		}
		ents = append(ents, ent)
	}

	e.extractEmails(text, add)
	e.extractTimes(text, add)
	e.extractDates(text, add)
	e.extractDurations(text, add)
	e.extractAmounts(text, add)
	e.extractPhones(text, add)
	e.extractQuantities(text, add)

	sort.Slice(ents, func(i, j int) bool { return ents[i].Start < ents[j].Start })
	return ents
}

func (e *Extractor) extractEmails(text string, add func(Entity)) {
	for _, m := range reEmail.FindAllStringIndex(text, -1) {
		add(Entity{Type: EntityEmail, Value: text[m[0]:m[1]], Original: text[m[0]:m[1]],
			Start: m[0], End: m[1], Confidence: 0.98})
	}
}

func (e *Extractor) extractTimes(text string, add func(Entity)) {
	// Explicit clock forms run before the "a las N" phrase pass so that
	// "a las 8pm" and "a las 19:30" are claimed by the more precise pattern.
	for _, m := range reTimeAMPM.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[m[2]:m[3]])
		minute := 0
		if m[4] >= 0 {
			minute, _ = strconv.Atoi(text[m[4]:m[5]])
		}
		period := "mañana"
		if text[m[6]:m[7]] == "p" {
			period = "tarde"
		}
		add(timeEntity(text, m[0], m[1], hour, minute, period, 0.95))
	}
	for _, m := range reTimeHHMM.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[m[2]:m[3]])
		minute, _ := strconv.Atoi(text[m[4]:m[5]])
		if hour > 23 || minute > 59 {
			continue
		}
		// 24-hour clock given explicitly; no period inference.
		add(Entity{Type: EntityTime, Value: fmt.Sprintf("%02d:%02d", hour, minute),
			Original: text[m[0]:m[1]], Start: m[0], End: m[1], Confidence: 0.95})
	}
	for _, m := range reTimePhrase.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[m[2]:m[3]])
		minute := 0
		if m[4] >= 0 {
			switch text[m[4]:m[5]] {
			case "media":
				minute = 30
			case "cuarto":
				minute = 15
			}
		}
		period := ""
		if m[6] >= 0 {
			period = text[m[6]:m[7]]
		}
		add(timeEntity(text, m[0], m[1], hour, minute, period, 0.9))
	}
	for _, m := range reTimeOfDay.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[m[2]:m[3]])
		add(timeEntity(text, m[0], m[1], hour, 0, text[m[4]:m[5]], 0.9))
	}
}

// timeEntity normalizes an hour/minute plus day-period into HH:MM. With no
// period given, hours below 7 are assumed to be evening times.
func timeEntity(text string, start, end, hour, minute int, period string, conf float64) Entity {
	switch period {
	case "tarde", "noche":
		if hour < 12 {
			hour += 12
		}
	case "madrugada", "mañana":
		// keep as given
	default:
		if hour < 7 {
			hour += 12
		}
	}
	if hour > 23 {
		hour %= 24
	}
	return Entity{Type: EntityTime, Value: fmt.Sprintf("%02d:%02d", hour, minute),
		Original: text[start:end], Start: start, End: end, Confidence: conf,
		Metadata: map[string]string{"period": period}}
}

func (e *Extractor) extractDates(text string, add func(Entity)) {
	for _, m := range reDateExplicit.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month := monthIndex[text[m[4]:m[5]]]
		year := e.dates.Today().Year
		if m[6] >= 0 {
			year, _ = strconv.Atoi(text[m[6]:m[7]])
		}
		if day < 1 || day > 31 {
			continue
		}
		d := types.Date{Year: year, Month: month, Day: day}
		add(Entity{Type: EntityDate, Value: d.String(), Original: text[m[0]:m[1]],
			Start: m[0], End: m[1], Confidence: 0.95})
	}
	for _, m := range reDateRelative.FindAllStringSubmatchIndex(text, -1) {
		var d types.Date
		switch text[m[2]:m[3]] {
		case "hoy":
			d = e.dates.Today()
		case "mañana":
			d = e.dates.Tomorrow()
		case "pasado mañana":
			d = e.dates.DayAfterTomorrow()
		case "ayer":
			d = e.dates.Today().AddDays(-1)
		}
		add(Entity{Type: EntityDate, Value: d.String(), Original: text[m[0]:m[1]],
			Start: m[0], End: m[1], Confidence: 0.9,
			Metadata: map[string]string{"relative": text[m[2]:m[3]]}})
	}
	for _, m := range reDateWeekday.FindAllStringSubmatchIndex(text, -1) {
		w := weekdayIndex[text[m[2]:m[3]]]
		d := e.dates.Next(w)
		add(Entity{Type: EntityDate, Value: d.String(), Original: text[m[0]:m[1]],
			Start: m[0], End: m[1], Confidence: 0.85,
			Metadata: map[string]string{"weekday": text[m[2]:m[3]]}})
	}
}

func (e *Extractor) extractDurations(text string, add func(Entity)) {
	for _, m := range reDurHour90.FindAllStringIndex(text, -1) {
		add(durationEntity(text, m[0], m[1], 90))
	}
	for _, m := range reDurHalf.FindAllStringIndex(text, -1) {
		add(durationEntity(text, m[0], m[1], 30))
	}
	for _, m := range reDurHours.FindAllStringSubmatchIndex(text, -1) {
		n, _ := strconv.Atoi(text[m[2]:m[3]])
		mins := n * 60
		if strings.HasSuffix(text[m[0]:m[1]], "y media") {
			mins += 30
		}
		add(durationEntity(text, m[0], m[1], mins))
	}
	for _, m := range reDurMins.FindAllStringSubmatchIndex(text, -1) {
		n, _ := strconv.Atoi(text[m[2]:m[3]])
		add(durationEntity(text, m[0], m[1], n))
	}
}

func durationEntity(text string, start, end, minutes int) Entity {
	return Entity{Type: EntityDuration, Value: strconv.Itoa(minutes),
		Original: text[start:end], Start: start, End: end, Confidence: 0.9,
		Metadata: map[string]string{"unit": "minutes"}}
}

func (e *Extractor) extractAmounts(text string, add func(Entity)) {
	for _, m := range reAmountScaled.FindAllStringSubmatchIndex(text, -1) {
		base, err := strconv.ParseFloat(strings.ReplaceAll(text[m[2]:m[3]], ",", "."), 64)
		if err != nil {
			continue
		}
		mult := 1000.0
		if strings.HasPrefix(text[m[4]:m[5]], "millon") {
			mult = 1_000_000
		}
		add(amountEntity(text, m[0], m[1], int64(base*mult)))
	}
	for _, m := range reAmountSign.FindAllStringSubmatchIndex(text, -1) {
		add(amountEntity(text, m[0], m[1], parseGroupedInt(text[m[2]:m[3]])))
	}
	for _, m := range reAmountPesos.FindAllStringSubmatchIndex(text, -1) {
		add(amountEntity(text, m[0], m[1], parseGroupedInt(text[m[2]:m[3]])))
	}
}

func amountEntity(text string, start, end int, pesos int64) Entity {
	return Entity{Type: EntityAmount, Value: strconv.FormatInt(pesos, 10),
		Original: text[start:end], Start: start, End: end, Confidence: 0.9,
		Metadata: map[string]string{"currency": "COP"}}
}

func parseGroupedInt(s string) int64 {
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (e *Extractor) extractPhones(text string, add func(Entity)) {
	for _, m := range rePhone.FindAllStringIndex(text, -1) {
		raw := text[m[0]:m[1]]
		digits := keepDigits(raw)
		if len(digits) < 7 || len(digits) > 15 {
			continue
		}
		add(Entity{Type: EntityPhone, Value: NormalizePhone(digits), Original: raw,
			Start: m[0], End: m[1], Confidence: 0.9})
	}
}

// NormalizePhone strips separators and formats Colombian mobile numbers
// (10 digits, leading 3) as +57 XXX XXX XXXX.
func NormalizePhone(raw string) string {
	digits := keepDigits(raw)
	if len(digits) == 10 && digits[0] == '3' {
		return fmt.Sprintf("+57 %s %s %s", digits[0:3], digits[3:6], digits[6:10])
	}
	if strings.HasPrefix(raw, "+") {
		return "+" + digits
	}
	return digits
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (e *Extractor) extractQuantities(text string, add func(Entity)) {
	for _, re := range []*regexp.Regexp{reQtyContext, reQtyLead} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			n, ok := parseSmallNumber(text[m[2]:m[3]])
			if !ok || n < 1 || n > 100 {
				continue
			}
			add(Entity{Type: EntityQuantity, Value: strconv.Itoa(n),
				Original: text[m[0]:m[1]], Start: m[0], End: m[1], Confidence: 0.9})
		}
	}
}
