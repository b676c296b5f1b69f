// Package keymap resolves a physical keycode and an active layer stack
// to the bound Action, per spec §4.2, and holds the layer-stack type
// that LayerTo actions push onto and pop from.
package keymap

import "keyremapd/internal/keycode"

// Kind discriminates the Action tagged union. Polymorphism over Actions
// is expressed as one struct dispatched by Kind, per the design note
// that a class hierarchy would be overkill at this scale: each variant
// carries exactly the data it needs and the unused fields stay zero.
type Kind int

const (
	KeyAction Kind = iota
	HomeRowAction
	OverloadAction
	LayerToAction
	SocdAction
	CommandAction
)

// Action is one binding's behavior. Only the fields relevant to Kind
// are meaningful; see the constructors below.
type Action struct {
	Kind Kind

	Key keycode.Code // KeyAction

	Tap  keycode.Code // HomeRowAction, OverloadAction
	Hold keycode.Code

	Layer string // LayerToAction

	Self     keycode.Code // SocdAction
	Opposing keycode.Code

	Command string // CommandAction
}

func Key(k keycode.Code) Action { return Action{Kind: KeyAction, Key: k} }

func HomeRow(tap, hold keycode.Code) Action {
	return Action{Kind: HomeRowAction, Tap: tap, Hold: hold}
}

func Overload(tap, hold keycode.Code) Action {
	return Action{Kind: OverloadAction, Tap: tap, Hold: hold}
}

func LayerTo(name string) Action { return Action{Kind: LayerToAction, Layer: name} }

func Socd(self, opposing keycode.Code) Action {
	return Action{Kind: SocdAction, Self: self, Opposing: opposing}
}

func Command(cmd string) Action { return Action{Kind: CommandAction, Command: cmd} }
