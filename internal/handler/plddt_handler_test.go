package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPlddtEngine() *gin.Engine {
	h := NewPlddtHandler()
	r := gin.New()
	r.GET("/legend", h.Legend)
	r.GET("/band", h.Band)
	return r
}

func TestPlddtBand(t *testing.T) {
	r := setupPlddtEngine()

	cases := []struct {
		query  string
		status int
		band   string
		color  string
	}{
		{"?value=95", http.StatusOK, "Very high", "#0053D6"},
		{"?value=90", http.StatusOK, "Confident", "#00C9FF"},
		{"?value=60.5", http.StatusOK, "Low", "#FFE71A"},
		{"?value=12", http.StatusOK, "Very low", "#FF9100"},
		{"?value=101", http.StatusBadRequest, "", ""},
		{"?value=-1", http.StatusBadRequest, "", ""},
		{"?value=abc", http.StatusBadRequest, "", ""},
		{"", http.StatusBadRequest, "", ""},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/band"+tc.query, nil))
		require.Equal(t, tc.status, w.Code, tc.query)
		if tc.status != http.StatusOK {
			continue
		}

		var resp struct {
			Data struct {
				Band  string `json:"band"`
				Color string `json:"color"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tc.band, resp.Data.Band, tc.query)
		assert.Equal(t, tc.color, resp.Data.Color, tc.query)
	}
}

func TestPlddtLegend(t *testing.T) {
	w := httptest.NewRecorder()
	setupPlddtEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/legend", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Band  string `json:"band"`
			Color string `json:"color"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 4)
	assert.Equal(t, "Very high", resp.Data[0].Band)
	assert.Equal(t, "#FF9100", resp.Data[3].Color)
}
