package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defeedco/wanderlens/pkg/geo"
)

func TestPush_LastKnownWithoutStream(t *testing.T) {
	p := NewPush(4)

	_, ok := p.LastKnown(context.Background())
	assert.False(t, ok)

	require.NoError(t, p.Push(geo.Fix{Latitude: 1, Longitude: 2}))
	require.NoError(t, p.Push(geo.Fix{Latitude: 3, Longitude: 4}))

	fix, ok := p.LastKnown(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3.0, fix.Latitude)
	assert.Equal(t, 4.0, fix.Longitude)
}

func TestPush_StreamDeliversInOrder(t *testing.T) {
	p := NewPush(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fixes := make(chan geo.Fix)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Stream(ctx, fixes, nil)
	}()

	require.Eventually(t, func() bool { return isStreaming(p) }, time.Second, time.Millisecond)

	for i := 1; i <= 3; i++ {
		require.NoError(t, p.Push(geo.Fix{Latitude: float64(i)}))
	}
	for i := 1; i <= 3; i++ {
		select {
		case fix := <-fixes:
			assert.Equal(t, float64(i), fix.Latitude)
		case <-time.After(time.Second):
			t.Fatal("fix not delivered")
		}
	}

	cancel()
	<-done
	assert.False(t, isStreaming(p))
}

func TestPush_BufferFull(t *testing.T) {
	p := NewPush(1)
	p.setStreaming(true)

	require.NoError(t, p.Push(geo.Fix{Latitude: 1}))
	assert.ErrorIs(t, p.Push(geo.Fix{Latitude: 2}), ErrBufferFull)

	fix, ok := p.LastKnown(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2.0, fix.Latitude)

	p.setStreaming(false)
	assert.Empty(t, p.fixes)
}

func TestPush_StreamDeliversFixMissedByLastKnown(t *testing.T) {
	tests := []struct {
		name   string
		pushes []float64
		want   []float64
	}{
		{name: "nothing after last known", pushes: nil, want: nil},
		{name: "one fix after last known", pushes: []float64{2}, want: []float64{2}},
		{name: "only the latest is kept", pushes: []float64{2, 3}, want: []float64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPush(4)
			require.NoError(t, p.Push(geo.Fix{Latitude: 1}))

			fix, ok := p.LastKnown(context.Background())
			require.True(t, ok)
			assert.Equal(t, 1.0, fix.Latitude)

			for _, lat := range tt.pushes {
				require.NoError(t, p.Push(geo.Fix{Latitude: lat}))
			}

			p.setStreaming(true)
			defer p.setStreaming(false)

			var got []float64
			for len(p.fixes) > 0 {
				got = append(got, (<-p.fixes).Latitude)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func isStreaming(p *Push) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streaming
}
