package ingest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryRingEmpty(t *testing.T) {
	r := newHistoryRing()
	_, ok := r.latest()
	assert.False(t, ok)
	assert.Empty(t, r.all())
	assert.Equal(t, uint64(0), r.count())
}

func TestHistoryRingOrdering(t *testing.T) {
	r := newHistoryRing()
	for i := 0; i < 5; i++ {
		r.push(&Output{Prompt: fmt.Sprintf("p%d", i)})
	}

	latest, ok := r.latest()
	assert.True(t, ok)
	assert.Equal(t, "p4", latest.Prompt)

	all := r.all()
	assert.Len(t, all, 5)
	assert.Equal(t, "p0", all[0].Prompt)
	assert.Equal(t, "p4", all[4].Prompt)
}

func TestHistoryRingWraps(t *testing.T) {
	r := newHistoryRing()
	for i := 0; i < historyCapacity+7; i++ {
		r.push(&Output{Prompt: fmt.Sprintf("p%d", i)})
	}

	assert.Equal(t, uint64(historyCapacity+7), r.count())

	all := r.all()
	assert.Len(t, all, historyCapacity)
	assert.Equal(t, "p7", all[0].Prompt)
	assert.Equal(t, fmt.Sprintf("p%d", historyCapacity+6), all[historyCapacity-1].Prompt)

	latest, ok := r.latest()
	assert.True(t, ok)
	assert.Equal(t, fmt.Sprintf("p%d", historyCapacity+6), latest.Prompt)
}
