package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-analyzer/pkg/query"
)

func TestGetPut(t *testing.T) {
	c := New(10)

	_, ok := c.Get("SELECT 1")
	assert.False(t, ok)

	queries := []*query.Query{query.NewQuery("SELECT 1", query.TypeSelect)}
	c.Put("SELECT 1", queries)

	got, ok := c.Get("SELECT 1")
	require.True(t, ok)
	assert.Equal(t, queries, got)
	assert.Equal(t, 1, c.Len())
}

func TestDefaultMaxSize(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultMaxSize, c.maxSize)

	c = New(-5)
	assert.Equal(t, DefaultMaxSize, c.maxSize)
}

func TestEvictionHalvesCache(t *testing.T) {
	c := New(10)
	for i := 0; i < 10; i++ {
		sql := fmt.Sprintf("SELECT %d", i)
		c.Put(sql, []*query.Query{query.NewQuery(sql, query.TypeSelect)})
	}
	require.Equal(t, 10, c.Len())

	c.Put("SELECT 10", []*query.Query{query.NewQuery("SELECT 10", query.TypeSelect)})
	assert.Equal(t, 6, c.Len())

	_, ok := c.Get("SELECT 10")
	assert.True(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sql := fmt.Sprintf("SELECT %d", i%10)
			c.Put(sql, []*query.Query{query.NewQuery(sql, query.TypeSelect)})
			c.Get(sql)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}
