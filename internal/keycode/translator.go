package keycode

import "fmt"

// OsCode is a raw Linux evdev key code as found in linux/input-event-codes.h
// (the `code` field of a KEY-type input_event).
type OsCode uint16

// evdevOf maps every logical Code to its evdev OsCode. out() is total over
// Code, and the mapping is one-to-one: the alphabet has no two Codes that
// share an OsCode, so osToCode's reverse lookup is unambiguous and
// in(out(k)) == Some(k) holds for every k without any tie-breaking.
var evdevOf = map[Code]OsCode{
	A: 30, B: 48, C: 46, D: 32, E: 18, F: 33, G: 34, H: 35, I: 23, J: 36,
	K: 37, L: 38, M: 50, N: 49, O: 24, P: 25, Q: 16, R: 19, S: 31, T: 20,
	U: 22, V: 47, W: 17, X: 45, Y: 21, Z: 44,

	Digit1: 2, Digit2: 3, Digit3: 4, Digit4: 5, Digit5: 6,
	Digit6: 7, Digit7: 8, Digit8: 9, Digit9: 10, Digit0: 11,

	Minus: 12, Equal: 13, LeftBrace: 26, RightBrace: 27, Semicolon: 39,
	Apostrophe: 40, Grave: 41, Backslash: 43, Comma: 51, Dot: 52, Slash: 53,
	Space: 57, Tab: 15, Enter: 28, Backspace: 14, Esc: 1,

	F1: 59, F2: 60, F3: 61, F4: 62, F5: 63, F6: 64, F7: 65, F8: 66,
	F9: 67, F10: 68, F11: 87, F12: 88, F13: 183, F14: 184, F15: 185,
	F16: 186, F17: 187, F18: 188, F19: 189, F20: 190, F21: 191, F22: 192,
	F23: 193, F24: 194,

	Insert: 110, Delete: 111, Home: 102, End: 107, PageUp: 104,
	PageDown: 109, Up: 103, Down: 108, Left: 105, Right: 106,

	NumLock: 69, KPSlash: 98, KPAsterisk: 55, KPMinus: 74, KPPlus: 78,
	KPEnter: 96, KPDot: 83, KPEqual: 117, KPComma: 121,
	KP0: 82, KP1: 79, KP2: 80, KP3: 81, KP4: 75, KP5: 76, KP6: 77,
	KP7: 71, KP8: 72, KP9: 73,

	LeftCtrl: 29, RightCtrl: 97, LeftShift: 42, RightShift: 54,
	LeftAlt: 56, RightAlt: 100, LeftSuper: 125, RightSuper: 126,

	CapsLock: 58, ScrollLock: 70,

	PrintScreen: 99, Pause: 119, Menu: 139, Compose: 127,
	Power: 116, Sleep: 142, Wake: 143,

	Mute: 113, VolumeDown: 114, VolumeUp: 115, PlayPause: 164, Stop: 128,
	NextTrack: 163, PrevTrack: 165, Eject: 161, Record: 167,

	WWWHome: 172, WWWBack: 158, WWWForward: 159, WWWRefresh: 173,
	WWWSearch: 217, WWWFavorites: 156,
	Mail: 155, Calculator: 140, MyComputer: 157,

	Ro: 89, Yen: 124, Henkan: 92, Muhenkan: 94, Katakana: 90,
	Hiragana: 91, KatakanaHiragana: 93, ZenkakuHankaku: 85,
	Hangeul: 122, Hanja: 123,

	Key102nd: 86,
}

// osToCode is the reverse of evdevOf, built once at init.
var osToCode = map[OsCode]Code{}

func init() {
	for k, v := range evdevOf {
		osToCode[v] = k
	}
}

// Translator is the bidirectional, total-on-output mapping between evdev
// OS codes and the engine's logical keycode alphabet.
type Translator struct{}

// NewTranslator returns the (stateless) key translator.
func NewTranslator() Translator { return Translator{} }

// In translates a physical evdev code to a logical Code. It returns
// (Unknown, false) for codes the alphabet does not cover; the caller
// must drop the event rather than synthesize an Unknown emission.
func (Translator) In(os OsCode) (Code, bool) {
	c, ok := osToCode[os]
	return c, ok
}

// Out translates a logical Code to its evdev OS code. Out is total: every
// Code produced by config resolution, tap/hold, or SOCD has an OS code.
func (Translator) Out(c Code) OsCode {
	os, ok := evdevOf[c]
	if !ok {
		panic(fmt.Sprintf("keycode: %d has no evdev mapping (alphabet/table drift)", c))
	}
	return os
}

// Capabilities returns the full set of evdev OS codes the translator can
// ever emit, for registering the virtual device's key capability mask.
func (Translator) Capabilities() []OsCode {
	codes := make([]OsCode, 0, len(evdevOf))
	seen := make(map[OsCode]bool, len(evdevOf))
	for _, os := range evdevOf {
		if !seen[os] {
			seen[os] = true
			codes = append(codes, os)
		}
	}
	return codes
}
