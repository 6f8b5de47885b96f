package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/status":
			w.Write([]byte(`{"success":true,"data":{"network":"preprod","runner":{"drop":"d1","total":10,"remaining":4},"payments":{"minted":6}}}`))
		case "/api/v1/payments":
			assert.Equal(t, "rejected", r.URL.Query().Get("status"))
			w.Write([]byte(`{"success":true,"data":{"payments":[{"id":"x#0","status":"rejected","reason":"mint failed"}],"total":1}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"error":"not found"}`))
		}
	}))
	defer srv.Close()

	c := NewClientURL(srv.URL)
	st, err := c.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "preprod", st.Network)
	require.NotNil(t, st.Runner)
	assert.Equal(t, 4, st.Runner.Remaining)
	assert.Equal(t, 6, st.Payments["minted"])
	assert.True(t, c.IsAlive())

	list, err := c.GetPayments("rejected")
	require.NoError(t, err)
	require.Len(t, list.Payments, 1)
	assert.Equal(t, "mint failed", list.Payments[0].Reason)
}

func TestClientDown(t *testing.T) {
	c := NewClientURL("http://127.0.0.1:1")
	_, err := c.GetStatus()
	assert.Error(t, err)
	assert.False(t, c.IsAlive())
}
