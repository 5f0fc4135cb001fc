package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_Publish(t *testing.T) {
	b := NewBus()
	a, unsubA := b.Subscribe(2)
	c, _ := b.Subscribe(1)

	b.Publish(Line("ok"))
	b.Publish(DataReport("[1]"))

	assert.Equal(t, Line("ok"), <-a)
	assert.Equal(t, DataReport("[1]"), <-a)

	// c only had room for the first event
	assert.Equal(t, Line("ok"), <-c)
	select {
	case v := <-c:
		t.Fatalf("unexpected event %v", v)
	default:
	}

	unsubA()
	unsubA()
	_, ok := <-a
	assert.False(t, ok)

	b.Close()
	_, ok = <-c
	assert.False(t, ok)

	// publish after close is dropped
	b.Publish(Line("late"))

	late, _ := b.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}
