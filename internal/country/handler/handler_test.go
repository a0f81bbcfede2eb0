package handler

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchdesk/internal/country"
	"watchdesk/pkg/testutil"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	dir, err := country.New([]country.Entry{
		{Code: "ru", Name: "Russia"},
		{Code: "ua", Name: "Ukraine"},
		{Code: "gb", Name: "United Kingdom"},
		{Code: "us", Name: "United States"},
	})
	require.NoError(t, err)
	r := chi.NewRouter()
	New(dir).Register(r)
	return r
}

func TestListCountries(t *testing.T) {
	rr := testutil.DoRequest(newRouter(t), testutil.NewJSONRequest(t, http.MethodGet, "/countries", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[listResponse](t, rr)
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, "Russia", resp.Countries[0].Name)
	assert.Equal(t, "United States", resp.Countries[3].Name)
}

func TestSearchCountries(t *testing.T) {
	router := newRouter(t)

	t.Run("matches names and codes", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/countries/search?q=UNITED", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[listResponse](t, rr)
		assert.Equal(t, []country.Entry{{Code: "gb", Name: "United Kingdom"}, {Code: "us", Name: "United States"}}, resp.Countries)
	})

	t.Run("no match is an empty list", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/countries/search?q=zz", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"countries":[],"count":0}`, rr.Body.String())
	})
}
