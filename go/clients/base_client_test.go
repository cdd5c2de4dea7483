package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/schools.csv":
			assert.Equal(t, "text/csv", r.Header.Get("Accept"))
			w.Write([]byte("Name,Conference\n"))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.Error(w, "missing", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL)
	c.SetHeader("Accept", "text/csv")

	body, err := c.Get(context.Background(), "/schools.csv")
	require.NoError(t, err)
	assert.Equal(t, "Name,Conference\n", string(body))

	_, err = c.Get(context.Background(), "/nope")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	c.maxBody = 16
	_, err = c.Get(context.Background(), "/big")
	assert.ErrorContains(t, err, "exceeds 16 bytes")
}
