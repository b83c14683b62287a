package nlp

import "strconv"

// spelledNumbers covers the quantities users actually spell out.
var spelledNumbers = map[string]int{
	"un": 1, "una": 1, "uno": 1,
	"dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"quince": 15, "veinte": 20,
}

const spelledAlt = `un|una|uno|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez|quince|veinte`

func parseSmallNumber(s string) (int, bool) {
	if n, ok := spelledNumbers[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
