package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokyoResponse = `{
	"status": "OK",
	"results": [{
		"formatted_address": "1-2-3 Shibuya, Tokyo 150-0002, Japan",
		"address_components": [
			{"long_name": "3", "short_name": "3", "types": ["street_number"]},
			{"long_name": "Shibuya", "short_name": "Shibuya", "types": ["route"]},
			{"long_name": "Tokyo", "short_name": "Tokyo", "types": ["locality", "political"]},
			{"long_name": "150-0002", "short_name": "150-0002", "types": ["postal_code"]},
			{"long_name": "Japan", "short_name": "JP", "types": ["country", "political"]}
		]
	}]
}`

func TestGeocode(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"address":  r.URL.Query().Get("address"),
			"key":      r.URL.Query().Get("key"),
			"language": r.URL.Query().Get("language"),
		}
		w.Write([]byte(tokyoResponse))
	}))
	defer srv.Close()

	client, err := NewGoogleMapsClient("test-key", nil, WithBaseURL(srv.URL), WithPace(0))
	require.NoError(t, err)

	res, err := client.Geocode(context.Background(), "1-2-3 Shibuya, Tokyo")

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "test-key", gotQuery["key"])
	assert.Equal(t, "en", gotQuery["language"])
	assert.Equal(t, "1-2-3 Shibuya, Tokyo", gotQuery["address"])

	assert.Equal(t, "3", res.Components.StreetNumber)
	assert.Equal(t, "Shibuya", res.Components.Route)
	assert.Equal(t, "Tokyo", res.Components.Locality)
	assert.Equal(t, "150-0002", res.Components.PostalCode)
	assert.Equal(t, "Japan", res.Components.Country)
	assert.Equal(t, "JP", res.Components.CountryCode)
}

func TestGeocode_ZeroResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	client, err := NewGoogleMapsClient("test-key", nil, WithBaseURL(srv.URL), WithPace(0))
	require.NoError(t, err)

	res, err := client.Geocode(context.Background(), "nowhere")

	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestGeocode_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewGoogleMapsClient("test-key", nil, WithBaseURL(srv.URL), WithPace(0))
	require.NoError(t, err)

	_, err = client.Geocode(context.Background(), "somewhere")

	assert.Error(t, err)
}

func TestNewGoogleMapsClient_RequiresKey(t *testing.T) {
	_, err := NewGoogleMapsClient("", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
