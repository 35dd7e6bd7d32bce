package entities

// KeySymbol names a non-character key
type KeySymbol string

const (
	KeyArrowDown KeySymbol = "ARROW_DOWN"
	KeyArrowUp   KeySymbol = "ARROW_UP"
	KeyTab       KeySymbol = "TAB"
	KeyEnter     KeySymbol = "ENTER"
	KeyEscape    KeySymbol = "ESCAPE"
	KeyBackspace KeySymbol = "BACKSPACE"
)

var knownKeys = map[KeySymbol]struct{}{
	KeyArrowDown: {},
	KeyArrowUp:   {},
	KeyTab:       {},
	KeyEnter:     {},
	KeyEscape:    {},
	KeyBackspace: {},
}

// Known reports whether k is one of the supported key symbols
func (k KeySymbol) Known() bool {
	_, ok := knownKeys[k]
	return ok
}

// MovesFocus reports whether pressing the key moves focus away from the
// target element
func (k KeySymbol) MovesFocus() bool {
	return k == KeyTab
}
