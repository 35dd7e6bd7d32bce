package browser

import (
	"fmt"

	"e2e_harness/domain/entities"

	"github.com/chromedp/chromedp/kb"
	"github.com/tebeka/selenium"
)

// playwrightKeys uses the DOM key names playwright expects
var playwrightKeys = map[entities.KeySymbol]string{
	entities.KeyArrowDown: "ArrowDown",
	entities.KeyArrowUp:   "ArrowUp",
	entities.KeyTab:       "Tab",
	entities.KeyEnter:     "Enter",
	entities.KeyEscape:    "Escape",
	entities.KeyBackspace: "Backspace",
}

var seleniumKeys = map[entities.KeySymbol]string{
	entities.KeyArrowDown: selenium.DownArrowKey,
	entities.KeyArrowUp:   selenium.UpArrowKey,
	entities.KeyTab:       selenium.TabKey,
	entities.KeyEnter:     selenium.EnterKey,
	entities.KeyEscape:    selenium.EscapeKey,
	entities.KeyBackspace: selenium.BackspaceKey,
}

var chromedpKeys = map[entities.KeySymbol]string{
	entities.KeyArrowDown: kb.ArrowDown,
	entities.KeyArrowUp:   kb.ArrowUp,
	entities.KeyTab:       kb.Tab,
	entities.KeyEnter:     kb.Enter,
	entities.KeyEscape:    kb.Escape,
	entities.KeyBackspace: kb.Backspace,
}

func lookupKey(keys map[entities.KeySymbol]string, key entities.KeySymbol) (string, error) {
	k, ok := keys[key]
	if !ok {
		return "", fmt.Errorf("unsupported key %q", key)
	}
	return k, nil
}
