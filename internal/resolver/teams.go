package resolver

import (
	"strings"

	"github.com/Proton-105/strike-bot/internal/fuzzy"
)

type teamAlias struct {
	term string
	code string
}

// teamAliases is checked in order; multi-word names come before their parts.
var teamAliases = []teamAlias{
	{"atlanta", "ATL"}, {"hawks", "ATL"}, {"atl", "ATL"},
	{"boston", "BOS"}, {"celtics", "BOS"}, {"bos", "BOS"},
	{"brooklyn", "BKN"}, {"nets", "BKN"}, {"bkn", "BKN"},
	{"charlotte", "CHA"}, {"hornets", "CHA"}, {"cha", "CHA"},
	{"chicago", "CHI"}, {"bulls", "CHI"}, {"chi", "CHI"},
	{"cleveland", "CLE"}, {"cavaliers", "CLE"}, {"cavs", "CLE"}, {"cle", "CLE"},
	{"detroit", "DET"}, {"pistons", "DET"}, {"det", "DET"},
	{"indiana", "IND"}, {"pacers", "IND"}, {"ind", "IND"},
	{"miami", "MIA"}, {"heat", "MIA"}, {"mia", "MIA"},
	{"milwaukee", "MIL"}, {"bucks", "MIL"}, {"mil", "MIL"},
	{"new york", "NYK"}, {"knicks", "NYK"}, {"nyk", "NYK"},
	{"orlando", "ORL"}, {"magic", "ORL"}, {"orl", "ORL"},
	{"philadelphia", "PHI"}, {"76ers", "PHI"}, {"sixers", "PHI"}, {"phi", "PHI"},
	{"toronto", "TOR"}, {"raptors", "TOR"}, {"tor", "TOR"},
	{"washington", "WAS"}, {"wizards", "WAS"}, {"was", "WAS"},
	{"dallas", "DAL"}, {"mavericks", "DAL"}, {"mavs", "DAL"}, {"dal", "DAL"},
	{"denver", "DEN"}, {"nuggets", "DEN"}, {"den", "DEN"},
	{"golden state", "GSW"}, {"warriors", "GSW"}, {"gsw", "GSW"}, {"gs", "GSW"},
	{"houston", "HOU"}, {"rockets", "HOU"}, {"hou", "HOU"},
	{"los angeles clippers", "LAC"}, {"clippers", "LAC"}, {"lac", "LAC"},
	{"los angeles lakers", "LAL"}, {"lakers", "LAL"}, {"lal", "LAL"},
	{"memphis", "MEM"}, {"grizzlies", "MEM"}, {"mem", "MEM"},
	{"minnesota", "MIN"}, {"timberwolves", "MIN"}, {"wolves", "MIN"}, {"min", "MIN"},
	{"new orleans", "NOP"}, {"pelicans", "NOP"}, {"pels", "NOP"}, {"nop", "NOP"},
	{"oklahoma city", "OKC"}, {"thunder", "OKC"}, {"okc", "OKC"},
	{"phoenix", "PHX"}, {"suns", "PHX"}, {"phx", "PHX"},
	{"portland", "POR"}, {"trail blazers", "POR"}, {"blazers", "POR"}, {"por", "POR"},
	{"sacramento", "SAC"}, {"kings", "SAC"}, {"sac", "SAC"},
	{"san antonio", "SAS"}, {"spurs", "SAS"}, {"sas", "SAS"},
	{"utah", "UTA"}, {"jazz", "UTA"}, {"uta", "UTA"},
}

// TeamCode finds a team alias in text. Aliases must match whole words so
// that short codes like "min" do not fire inside "minutes".
func TeamCode(text string) (string, bool) {
	padded := " " + fuzzy.Normalize(stripPunct(text)) + " "
	for _, a := range teamAliases {
		if strings.Contains(padded, " "+a.term+" ") {
			return a.code, true
		}
	}
	return "", false
}

// IsTeamCode reports whether code is one of the known three-letter codes.
func IsTeamCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, a := range teamAliases {
		if a.code == code {
			return true
		}
	}
	return false
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '.', ',', ';', ':', '"', '\'':
			return ' '
		}
		return r
	}, s)
}
