package mirror

import "regexp"

// Side is the left/right classification of a shape name.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

type namePattern struct {
	re     *regexp.Regexp
	prefix bool
}

const optTail = `(?P<opt>[._]\d+(?:_end|\.end)?)?$`

// Patterns are tried in order, first match wins.
var namePatterns = []namePattern{
	// Eye_L, Eye.R, brow-left.001
	{re: regexp.MustCompile(`^(?P<base>.+)(?P<sep>[._\-])(?P<side>L|R|l|r|Left|Right|left|right)` + optTail)},
	// L_Eye, r.brow
	{re: regexp.MustCompile(`^(?P<side>L|R|l|r|Left|Right|left|right)(?P<sep>[._-])(?P<base>.+?)` + optTail), prefix: true},
	// UpperArmLeft
	{re: regexp.MustCompile(`^(?P<base>.+?)(?P<side>Left|Right)` + optTail)},
	// LeftUpperArm, leftUpperArm
	{re: regexp.MustCompile(`^(?P<side>Left|Right|left|right)(?P<base>[^a-z].+?)` + optTail), prefix: true},
}

var sideSwap = map[string]string{
	"L": "R", "R": "L",
	"l": "r", "r": "l",
	"Left": "Right", "Right": "Left",
	"left": "right", "right": "left",
}

type parsedName struct {
	base, sep, side, opt string
	prefix               bool
}

func parseName(name string) (parsedName, bool) {
	for _, pat := range namePatterns {
		m := pat.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		var pn parsedName
		pn.prefix = pat.prefix
		for i, group := range pat.re.SubexpNames() {
			switch group {
			case "base":
				pn.base = m[i]
			case "sep":
				pn.sep = m[i]
			case "side":
				pn.side = m[i]
			case "opt":
				pn.opt = m[i]
			}
		}
		return pn, true
	}
	return parsedName{}, false
}

// SideOf returns the side a shape name refers to, i.e. SideLeft for "Blink_L".
func SideOf(name string) Side {
	pn, ok := parseName(name)
	if !ok {
		return SideNone
	}
	switch pn.side {
	case "L", "l", "Left", "left":
		return SideLeft
	case "R", "r", "Right", "right":
		return SideRight
	}
	return SideNone
}

// Name returns the name of the opposite side shape, i.e. "Blink_R"
// for "Blink_L". ok is false if name has no side marker.
func Name(name string) (mirrored string, ok bool) {
	pn, ok := parseName(name)
	if !ok {
		return "", false
	}
	swap, ok := sideSwap[pn.side]
	if !ok {
		return "", false
	}
	if pn.prefix {
		return swap + pn.sep + pn.base + pn.opt, true
	}
	return pn.base + pn.sep + swap + pn.opt, true
}
