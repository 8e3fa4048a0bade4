package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/genpad/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `{"data":[
	{"id":"m1","name":"Vehicle Helper","endpointUrl":"https://helper","method":"GET","requestField":"q"},
	{"id":"m2","name":"Dashboard Maker","category":"GenAI_Dashboard"},
	{"id":"","name":"Broken"}
]}`

func TestListDecodesAndFilters(t *testing.T) {
	var gotCategory, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/addons", r.URL.Path)
		gotCategory = r.URL.Query().Get("category")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(listing))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", Token: "tok"})
	list, err := c.List(context.Background(), generator.CategoryPython)
	require.NoError(t, err)

	assert.Equal(t, "GenAI_Python", gotCategory)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, list, 1)
	assert.Equal(t, "m1", list[0].ID)
	assert.Equal(t, generator.CategoryPython, list[0].Category)
	assert.Equal(t, generator.MethodGet, list[0].Method)
	assert.Equal(t, "q", list[0].RequestField)
}

func TestListCachesAndSharesRequests(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Write([]byte(`[{"id":"m1","name":"One"}]`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := c.List(ctx, generator.CategoryWidget)
			assert.NoError(t, err)
			assert.Len(t, list, 1)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	_, err := c.List(ctx, generator.CategoryWidget)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	c.Invalidate()
	_, err = c.List(ctx, generator.CategoryWidget)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("category") == "GenAI_Widget" {
			w.Write([]byte(`{"data":{"not":"a list"}}`))
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.List(context.Background(), generator.CategoryPython)
	assert.ErrorContains(t, err, "502")

	_, err = c.List(context.Background(), generator.CategoryWidget)
	assert.ErrorContains(t, err, "listing array")
}

func TestListDisabled(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Enabled())

	list, err := c.List(context.Background(), generator.CategoryPython)
	assert.NoError(t, err)
	assert.Nil(t, list)
}
