package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"e2e_harness/application/harness/harnesstest"
	"e2e_harness/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocatorBrowser(t *testing.T, spec harnesstest.PageSpec) (*Locator, *harnesstest.Browser) {
	t.Helper()
	b := harnesstest.NewBrowser(map[string]harnesstest.PageSpec{"/page": spec})
	require.NoError(t, b.Navigate(context.Background(), harnesstest.BaseURL+"/page"))
	return NewLocator(b, NewWaiter(10*time.Millisecond)), b
}

func TestResolveSingleElement(t *testing.T) {
	l, _ := newLocatorBrowser(t, harnesstest.PageSpec{Elements: func() []*harnesstest.Element {
		return []*harnesstest.Element{{ID: "nameInput", Tag: "input"}}
	}})

	h, err := l.Resolve(context.Background(), entities.ID("nameInput"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "#nameInput", h.Describe())
}

func TestResolveWaitsForLateElement(t *testing.T) {
	l, _ := newLocatorBrowser(t, harnesstest.PageSpec{
		RenderDelay: 80 * time.Millisecond,
		Elements: func() []*harnesstest.Element {
			return []*harnesstest.Element{{ID: "late", Tag: "div"}}
		},
	})

	_, err := l.Resolve(context.Background(), entities.ID("late"), 2*time.Second)
	require.NoError(t, err)
}

func TestResolveNotFound(t *testing.T) {
	l, _ := newLocatorBrowser(t, harnesstest.PageSpec{Elements: func() []*harnesstest.Element { return nil }})

	_, err := l.Resolve(context.Background(), entities.ID("missing"), 50*time.Millisecond)
	require.ErrorIs(t, err, entities.ErrNotFound)

	var locErr *entities.LocateError
	require.True(t, errors.As(err, &locErr))
	assert.Equal(t, 0, locErr.Matches)
}

func TestResolveAmbiguousIsNeverFirstMatch(t *testing.T) {
	l, _ := newLocatorBrowser(t, harnesstest.PageSpec{Elements: func() []*harnesstest.Element {
		return []*harnesstest.Element{
			{ID: "a", Name: "receipt", Tag: "input"},
			{ID: "b", Name: "receipt", Tag: "input"},
		}
	}})

	h, err := l.Resolve(context.Background(), entities.Name("receipt"), 50*time.Millisecond)
	require.ErrorIs(t, err, entities.ErrAmbiguous)
	assert.Nil(t, h)

	var locErr *entities.LocateError
	require.True(t, errors.As(err, &locErr))
	assert.Equal(t, 2, locErr.Matches)
}

func TestResolvePropagatesSessionLoss(t *testing.T) {
	l, b := newLocatorBrowser(t, harnesstest.PageSpec{Elements: func() []*harnesstest.Element { return nil }})
	b.LoseSessionAfter = 1

	_, err := l.Resolve(context.Background(), entities.ID("x"), time.Second)
	assert.ErrorIs(t, err, entities.ErrSessionLost)
}
