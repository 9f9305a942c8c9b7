package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueDeduplicates(t *testing.T) {
	q := New()

	assert.True(t, q.Add("https://cokac.com/lecture/1"))
	assert.False(t, q.Add(" https://cokac.com/lecture/1/ "))
	assert.False(t, q.Add("https://cokac.com/lecture/1#player"))
	assert.True(t, q.Add("https://cokac.com/lecture/2"))
	assert.False(t, q.Add("   "))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Total())

	url, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, "https://cokac.com/lecture/1", url)
	assert.False(t, q.Add("https://cokac.com/lecture/1"), "processed URLs stay known")

	url, ok = q.Next()
	assert.True(t, ok)
	assert.Equal(t, "https://cokac.com/lecture/2", url)

	_, ok = q.Next()
	assert.False(t, ok)
	assert.Equal(t, 2, q.Done())
	assert.Zero(t, q.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "https://cokac.com/lecture/1", Key(" https://cokac.com/lecture/1/#t=10 "))
	assert.Equal(t, "", Key("///"))
}
