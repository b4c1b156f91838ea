package catalog

import (
	"strconv"
	"strings"
)

var bigClubs = map[string]bool{
	"FC Barcelona": true, "Real Madrid": true, "Atlético de Madrid": true,
	"Manchester United": true, "Manchester City": true, "Liverpool": true,
	"Chelsea": true, "Arsenal": true, "Tottenham Hotspur": true,
	"Bayern Munich": true, "Borussia Dortmund": true,
	"Juventus": true, "AC Milan": true, "Inter Milan": true, "Napoli": true,
	"Paris Saint-Germain": true, "Olympique Lyonnais": true, "Olympique de Marseille": true,
	"Ajax": true, "PSV Eindhoven": true,
	"Porto": true, "Benfica": true,
}

const (
	gradeBaseline = 50
	easyFloor     = 70
	mediumFloor   = 40
	maxLoanMalus  = 15
)

// Grade scores how recognizable a career is. Higher is easier: a famous last
// club is the strongest clue, many clubs and loans muddy the path.
func Grade(career []CareerEntry) DifficultyInfo {
	score := gradeBaseline

	var clubs []string
	unique := map[string]bool{}
	loans := 0
	for _, e := range career {
		if e.Loan {
			loans++
		}
		if e.Team == "" {
			continue
		}
		clubs = append(clubs, e.Team)
		unique[e.Team] = true
	}

	if len(clubs) > 0 && bigClubs[clubs[len(clubs)-1]] {
		score += 25
	}
	if len(clubs) > 0 && bigClubs[clubs[0]] {
		score -= 10
	}

	switch {
	case len(unique) <= 3:
		score += 20
	case len(unique) > 8:
		score -= 20
	}

	anyBig := false
	for club := range unique {
		if bigClubs[club] {
			anyBig = true
			break
		}
	}
	if anyBig {
		score += 15
	} else {
		score -= 15
	}

	score -= min(loans*5, maxLoanMalus)
	score = max(0, min(100, score))

	level := DifficultyHard
	switch {
	case score >= easyFloor:
		level = DifficultyEasy
	case score >= mediumFloor:
		level = DifficultyMedium
	}
	return DifficultyInfo{Score: score, Level: level}
}

// MarkLoans flags stints that sit inside the first recorded period of a
// different club seen earlier in the career. Entries must be in start order.
func MarkLoans(career []CareerEntry) []CareerEntry {
	type period struct{ start, end int }
	owners := map[string]period{}
	var order []string

	out := make([]CareerEntry, len(career))
	for i, e := range career {
		start, end := ParseYears(e.Years)
		for _, team := range order {
			if team == e.Team {
				continue
			}
			p := owners[team]
			if start >= p.start && end <= p.end {
				e.Loan = true
				break
			}
		}
		if _, seen := owners[e.Team]; !seen {
			owners[e.Team] = period{start, end}
			order = append(order, e.Team)
		}
		out[i] = e
	}
	return out
}

// FormatYears renders a stint as "2004–2021", "2021–" or "".
func FormatYears(start, end int) string {
	switch {
	case start > 0 && end > 0:
		return strconv.Itoa(start) + "–" + strconv.Itoa(end)
	case start > 0:
		return strconv.Itoa(start) + "–"
	default:
		return ""
	}
}

// NormalizeYears rewrites "2004-2021" into "2004–2021". Text it cannot
// read as a range is returned unchanged.
func NormalizeYears(years string) string {
	start, end := ParseYears(years)
	if start == 0 {
		return years
	}
	if end == openEnd {
		end = 0
	}
	return FormatYears(start, end)
}

const openEnd = 9999

// ParseYears reads a range written by FormatYears. A missing start is 0 and
// a missing end is 9999, so open stints contain everything after them.
func ParseYears(years string) (start, end int) {
	start, end = 0, openEnd
	years = strings.TrimSpace(years)
	if years == "" {
		return start, end
	}
	sep := "–"
	if !strings.Contains(years, sep) {
		sep = "-"
	}
	from, to, found := strings.Cut(years, sep)
	if n, err := strconv.Atoi(strings.TrimSpace(from)); err == nil {
		start = n
	}
	if !found {
		end = start
		return start, end
	}
	if n, err := strconv.Atoi(strings.TrimSpace(to)); err == nil {
		end = n
	}
	return start, end
}
