package keycode

// byName and name are the config-facing string vocabulary: TOML config
// files bind keys by these identifiers, which match the Go constant
// names above so a config author reading this package's source finds
// the binding names directly.
var byName = map[string]Code{
	"A": A, "B": B, "C": C, "D": D, "E": E, "F": F, "G": G, "H": H, "I": I,
	"J": J, "K": K, "L": L, "M": M, "N": N, "O": O, "P": P, "Q": Q, "R": R,
	"S": S, "T": T, "U": U, "V": V, "W": W, "X": X, "Y": Y, "Z": Z,

	"Digit1": Digit1, "Digit2": Digit2, "Digit3": Digit3, "Digit4": Digit4,
	"Digit5": Digit5, "Digit6": Digit6, "Digit7": Digit7, "Digit8": Digit8,
	"Digit9": Digit9, "Digit0": Digit0,

	"Minus": Minus, "Equal": Equal, "LeftBrace": LeftBrace,
	"RightBrace": RightBrace, "Semicolon": Semicolon, "Apostrophe": Apostrophe,
	"Grave": Grave, "Backslash": Backslash, "Comma": Comma, "Dot": Dot,
	"Slash": Slash, "Space": Space, "Tab": Tab, "Enter": Enter,
	"Backspace": Backspace, "Esc": Esc,

	"F1": F1, "F2": F2, "F3": F3, "F4": F4, "F5": F5, "F6": F6, "F7": F7,
	"F8": F8, "F9": F9, "F10": F10, "F11": F11, "F12": F12, "F13": F13,
	"F14": F14, "F15": F15, "F16": F16, "F17": F17, "F18": F18, "F19": F19,
	"F20": F20, "F21": F21, "F22": F22, "F23": F23, "F24": F24,

	"Insert": Insert, "Delete": Delete, "Home": Home, "End": End,
	"PageUp": PageUp, "PageDown": PageDown, "Up": Up, "Down": Down,
	"Left": Left, "Right": Right,

	"NumLock": NumLock, "KPSlash": KPSlash, "KPAsterisk": KPAsterisk,
	"KPMinus": KPMinus, "KPPlus": KPPlus, "KPEnter": KPEnter, "KPDot": KPDot,
	"KPEqual": KPEqual, "KPComma": KPComma,
	"KP0": KP0, "KP1": KP1, "KP2": KP2, "KP3": KP3, "KP4": KP4, "KP5": KP5,
	"KP6": KP6, "KP7": KP7, "KP8": KP8, "KP9": KP9,

	"LeftCtrl": LeftCtrl, "RightCtrl": RightCtrl, "LeftShift": LeftShift,
	"RightShift": RightShift, "LeftAlt": LeftAlt, "RightAlt": RightAlt,
	"LeftSuper": LeftSuper, "RightSuper": RightSuper,

	"CapsLock": CapsLock, "ScrollLock": ScrollLock,

	"PrintScreen": PrintScreen, "Pause": Pause, "Menu": Menu,
	"Compose": Compose, "Power": Power, "Sleep": Sleep,
	"Wake": Wake,

	"Mute": Mute, "VolumeDown": VolumeDown, "VolumeUp": VolumeUp,
	"PlayPause": PlayPause, "Stop": Stop, "NextTrack": NextTrack,
	"PrevTrack": PrevTrack, "Eject": Eject, "Record": Record,

	"WWWHome": WWWHome, "WWWBack": WWWBack, "WWWForward": WWWForward,
	"WWWRefresh": WWWRefresh, "WWWSearch": WWWSearch,
	"WWWFavorites": WWWFavorites, "Mail": Mail, "Calculator": Calculator,
	"MyComputer": MyComputer,

	"Ro": Ro, "Yen": Yen, "Henkan": Henkan, "Muhenkan": Muhenkan,
	"Katakana": Katakana, "Hiragana": Hiragana,
	"KatakanaHiragana": KatakanaHiragana,
	"ZenkakuHankaku": ZenkakuHankaku, "Hangeul": Hangeul, "Hanja": Hanja,

	"Key102nd": Key102nd,
}

var nameOf map[Code]string

func init() {
	nameOf = make(map[Code]string, len(byName))
	for name, c := range byName {
		nameOf[c] = name
	}
}

// ParseName looks up a Code by its config-facing name.
func ParseName(name string) (Code, bool) {
	c, ok := byName[name]
	return c, ok
}

// String returns c's config-facing name, "Unknown" for Unknown, or
// "Invalid" for a value outside the alphabet.
func (c Code) String() string {
	if c == Unknown {
		return "Unknown"
	}
	if name, ok := nameOf[c]; ok {
		return name
	}
	return "Invalid"
}
