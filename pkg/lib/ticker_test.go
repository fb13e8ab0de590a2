package lib

import (
	"testing"
	"time"
)

func TestJitterTicker(t *testing.T) {
	ticker := JitterTicker(time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C:
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}
