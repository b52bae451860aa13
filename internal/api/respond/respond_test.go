package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "NOT_FOUND", "no such match")

	var resp ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "no such match", resp.Error.Message)
	assert.NotContains(t, rec.Body.String(), "detail")
}

func TestWriteErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorDetail(rec, http.StatusConflict, "MATCH_EXISTS",
		"a match with this dota match id is already logged",
		"set overwrite=true to replace the existing log")

	var resp ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "MATCH_EXISTS", resp.Error.Code)
	assert.Equal(t, "set overwrite=true to replace the existing log", resp.Error.Detail)
}
