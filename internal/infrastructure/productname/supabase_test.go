package productname

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/sku_total", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"품번코드": "spanish", "상품명": "스페인어 학습지"},
			{"품번코드": "japanese", "상품명": "일본어 학습지"},
			{"품번코드": "", "상품명": "dangling"}
		]`))
	}))
	defer srv.Close()

	source, err := NewSupabaseSource(srv.URL, "test-key", nil)
	require.NoError(t, err)

	mapping, err := source.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, mapping, 2)
	assert.Equal(t, "스페인어 학습지", mapping["spanish"])
}

func TestSupabaseFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	source, err := NewSupabaseSource(srv.URL, "bad-key", nil)
	require.NoError(t, err)

	_, err = source.Fetch(context.Background())

	assert.Error(t, err)
}

func TestNewSupabaseSource_RequiresConfig(t *testing.T) {
	_, err := NewSupabaseSource("", "key", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

type stubSource struct {
	mapping Mapping
	err     error
	calls   int
}

func (s *stubSource) Fetch(context.Context) (Mapping, error) {
	s.calls++
	return s.mapping, s.err
}

func TestCachedSource_WithoutRedisGoesStraightThrough(t *testing.T) {
	stub := &stubSource{mapping: Mapping{"spanish": "스페인어 학습지"}}
	cached, err := NewCachedSource(stub, nil)
	require.NoError(t, err)

	mapping, err := cached.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "스페인어 학습지", mapping["spanish"])
	assert.Equal(t, 1, stub.calls)
}

func TestCachedSource_PropagatesSourceError(t *testing.T) {
	stub := &stubSource{err: errors.New("table unreachable")}
	cached, err := NewCachedSource(stub, nil)
	require.NoError(t, err)

	_, err = cached.Fetch(context.Background())

	assert.Error(t, err)
}
