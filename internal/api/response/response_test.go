package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"answer": "a < b"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"answer":"a < b"}}`, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "a < b")
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, map[string]string{"Content": "field is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, map[string]any{"Content": "field is required"}, resp.Error)
}

func TestJSON_NonSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusAccepted, nil)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	JSON(rec, http.StatusConflict, "x")
	assert.JSONEq(t, `{"success":false,"data":"x"}`, rec.Body.String())
}
