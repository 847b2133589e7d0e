package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicProvider_Counter_ReusedAndAccumulates(t *testing.T) {
	p := NewBasicProvider()

	c1 := p.Counter("jobs_submitted")
	c2 := p.Counter("jobs_submitted")
	require.Same(t, c1, c2, "expected same counter instance for same name")

	c1.Add(3)
	c2.Add(2)
	got, ok := p.CounterValue("jobs_submitted")
	require.True(t, ok)
	require.EqualValues(t, 5, got)

	require.NotSame(t, c1, p.Counter("other"))

	_, ok = p.CounterValue("missing")
	require.False(t, ok)
}

func TestBasicProvider_UpDownCounter_ReusedAndMoves(t *testing.T) {
	p := NewBasicProvider()
	u1 := p.UpDownCounter("busy")
	u2 := p.UpDownCounter("busy")
	require.Same(t, u1, u2)

	u1.Add(+3)
	u2.Add(-1)
	u1.Add(+10)
	got, ok := p.UpDownValue("busy")
	require.True(t, ok)
	require.EqualValues(t, 12, got)
}

func TestBasicProvider_Histogram_RecordsStats(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("duration_seconds")

	s, ok := p.HistogramSnapshot("duration_seconds")
	require.True(t, ok)
	require.Zero(t, s.Count)
	require.Zero(t, s.Mean)

	h.Record(0.1)
	h.Record(0.3)
	h.Record(0.2)

	s, _ = p.HistogramSnapshot("duration_seconds")
	require.EqualValues(t, 3, s.Count)
	require.InDelta(t, 0.1, s.Min, 1e-9)
	require.InDelta(t, 0.3, s.Max, 1e-9)
	require.InDelta(t, 0.6, s.Sum, 1e-9)
	require.InDelta(t, 0.2, s.Mean, 1e-9)
}

func TestBasicProvider_Config_FirstRegistrationWins(t *testing.T) {
	p := NewBasicProvider()
	p.Counter("c", WithDescription("first"), WithUnit("1"), WithAttributes(map[string]string{"pool": "a"}))
	p.Counter("c", WithDescription("second"))

	cfg, ok := p.Config("c")
	require.True(t, ok)
	require.Equal(t, "first", cfg.Description)
	require.Equal(t, "1", cfg.Unit)
	require.Equal(t, map[string]string{"pool": "a"}, cfg.Attributes)
}

func TestBasicProvider_ConcurrentUse(t *testing.T) {
	p := NewBasicProvider()

	const goroutines = 16
	const perG = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range perG {
				p.Counter("c").Add(1)
				p.UpDownCounter("u").Add(1)
				p.UpDownCounter("u").Add(-1)
				p.Histogram("h").Record(1)
			}
		}()
	}
	wg.Wait()

	c, _ := p.CounterValue("c")
	require.EqualValues(t, goroutines*perG, c)
	u, _ := p.UpDownValue("u")
	require.Zero(t, u)
	h, _ := p.HistogramSnapshot("h")
	require.EqualValues(t, goroutines*perG, h.Count)
}

func TestNoopProvider_DiscardsEverything(t *testing.T) {
	p := NewNoopProvider()
	require.NotPanics(t, func() {
		p.Counter("c").Add(1)
		p.UpDownCounter("u").Add(-1)
		p.Histogram("h").Record(0.5)
	})
}

func TestWithAttributes_CopiesInput(t *testing.T) {
	attrs := map[string]string{"pool": "a"}
	cfg := NewInstrumentConfig(WithAttributes(attrs), nil, WithAttributes(nil))
	attrs["pool"] = "b"
	require.Equal(t, "a", cfg.Attributes["pool"])
}
