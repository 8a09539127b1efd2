package coords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceIterator(t *testing.T) {
	items := []Coordinates{
		New(A("time", Int(0))),
		New(A("time", Int(1))),
	}
	it := FromSlice(items)

	assert.True(t, it.IsFinite())
	n, known := it.Len()
	require.True(t, known)
	assert.Equal(t, 2, n)

	assert.Equal(t, Yes, it.MayProduce(New(A("time", Int(1)))))
	assert.Equal(t, No, it.MayProduce(New(A("time", Int(5)))))

	first, ok := it.Next()
	require.True(t, ok)
	assert.True(t, first.Equal(items[0]))

	_, ok = it.Next()
	require.True(t, ok)
	_, ok = it.Next()
	assert.False(t, ok, "iterator must exhaust")

	it.Reset()
	_, ok = it.Next()
	assert.True(t, ok)
}

func TestCountingIterator(t *testing.T) {
	it := Counting("image")
	assert.False(t, it.IsFinite())

	for i := 0; i < 3; i++ {
		c, ok := it.Next()
		require.True(t, ok)
		v, _ := c.Get("image")
		assert.Equal(t, int64(i), v.Int())
	}

	assert.Equal(t, Yes, it.MayProduce(New(A("image", Int(1000)))))
	assert.Equal(t, No, it.MayProduce(New(A("image", Int(-1)))))
	assert.Equal(t, No, it.MayProduce(New(A("time", Int(0)))))
	assert.Equal(t, No, it.MayProduce(New(A("image", Int(0)), A("z", Int(0)))))
}

func TestFuncIterator(t *testing.T) {
	i := 0
	it := FromFunc(func() (Coordinates, bool) {
		if i >= 2 {
			return Coordinates{}, false
		}
		c := New(A("t", Int(int64(i))))
		i++
		return c, true
	}, true)

	assert.True(t, it.IsFinite())
	_, known := it.Len()
	assert.False(t, known)
	assert.Equal(t, Unknown, it.MayProduce(New(A("t", Int(0)))))

	count := 0
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestRange(t *testing.T) {
	it := Range("t", 3)
	n, _ := it.Len()
	assert.Equal(t, 3, n)
	assert.Equal(t, Yes, it.MayProduce(New(A("t", Int(2)))))
	assert.Equal(t, No, it.MayProduce(New(A("t", Int(3)))))
}
