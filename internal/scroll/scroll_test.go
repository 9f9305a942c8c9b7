package scroll

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/go-scripts/transcript/internal/browser/browsertest"
)

// growingTarget grows for the first k scrolls and then stays put.
type growingTarget struct {
	k        int
	scrolls  int
	bottomAt int
	failAt   int
}

func (g *growingTarget) ScrollBy(ctx context.Context, px int) error {
	g.scrolls++
	if g.failAt > 0 && g.scrolls == g.failAt {
		return errors.New("target crashed")
	}
	return nil
}

func (g *growingTarget) Sample(ctx context.Context) (Signals, error) {
	n := min(g.scrolls, g.k)
	return Signals{
		Height:   1000 + 100*n,
		CueCount: 10 * n,
		AtBottom: g.bottomAt > 0 && g.scrolls >= g.bottomAt,
	}, nil
}

func testConfig(max, idle int) Config {
	return Config{MaxAttempts: max, Step: 800, IdleThreshold: idle}
}

func TestUntilStableConverges(t *testing.T) {
	target := &growingTarget{k: 7}
	var steps []int

	cfg := testConfig(50, 5)
	cfg.OnStep = func(attempt int, s Signals) { steps = append(steps, attempt) }

	res, err := UntilStable(context.Background(), target, cfg)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.False(t, res.ReachedBottom)
	assert.Equal(t, 12, res.ScrollCount)
	assert.Equal(t, 70, res.FinalCueCount)
	assert.Len(t, steps, 12)
}

func TestUntilStableBudgetExhausted(t *testing.T) {
	target := &growingTarget{k: 100}

	res, err := UntilStable(context.Background(), target, testConfig(10, 5))
	require.NoError(t, err, "running out of attempts is not an error")

	assert.False(t, res.Converged)
	assert.Equal(t, 10, res.ScrollCount)
	assert.Equal(t, 100, res.FinalCueCount)
}

func TestUntilStableStopsAtBottom(t *testing.T) {
	target := &growingTarget{k: 100, bottomAt: 3}

	res, err := UntilStable(context.Background(), target, testConfig(50, 5))
	require.NoError(t, err)

	assert.True(t, res.ReachedBottom)
	assert.Equal(t, 3, res.ScrollCount)
}

func TestUntilStableErrors(t *testing.T) {
	t.Run("target failure", func(t *testing.T) {
		_, err := UntilStable(context.Background(), &growingTarget{k: 5, failAt: 2}, testConfig(50, 5))
		assert.ErrorContains(t, err, "target crashed")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := UntilStable(ctx, &growingTarget{k: 5}, testConfig(50, 5))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUntilStableTerminationBound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(1, 30).Draw(t, "k")
		idle := rapid.IntRange(1, 8).Draw(t, "idle")
		max := rapid.IntRange(1, 60).Draw(t, "max")

		res, err := UntilStable(context.Background(), &growingTarget{k: k}, testConfig(max, idle))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ScrollCount > max {
			t.Fatalf("scrolled %d times, budget %d", res.ScrollCount, max)
		}
		if res.ScrollCount > k+idle {
			t.Fatalf("scrolled %d times, expected at most k+idle=%d", res.ScrollCount, k+idle)
		}
		if want := min(k+idle, max); res.ScrollCount != want {
			t.Fatalf("scrolled %d times, want %d", res.ScrollCount, want)
		}
	})
}

func TestPageTarget(t *testing.T) {
	page := browsertest.New().
		On("container.scrollBy", "ok").
		On("querySelectorAll", `{"height":2400,"cues":31,"at_bottom":true}`)

	target := PageTarget{
		Page:        page,
		Containers:  []string{`div[class*="transcript"]`, `[class*="video-player"]`},
		CueSelector: `span[class*="cueText"]`,
	}

	require.NoError(t, target.ScrollBy(context.Background(), 800))
	s, err := target.Sample(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Signals{Height: 2400, CueCount: 31, AtBottom: true}, s)
	require.Len(t, page.Scripts, 2)
	assert.Contains(t, page.Scripts[0], "scrollBy(0, 800)")
	assert.Contains(t, page.Scripts[1], `span[class*=\"cueText\"]`)
}
