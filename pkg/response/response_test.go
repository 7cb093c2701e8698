package response

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessWithPagination(t *testing.T) {
	resp := SuccessWithPagination(http.StatusOK, []string{"a", "b"}, 2, 20, 41)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, "success", resp.Status)

	empty := SuccessWithPagination(http.StatusOK, []string{}, 1, 20, 0)
	assert.Zero(t, empty.Meta.TotalPages)
}

func TestErrorOmitsData(t *testing.T) {
	raw, err := json.Marshal(FieldError(http.StatusBadRequest, "items[0].quantity", "must be at least 1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","status_code":400,"error":"must be at least 1","field":"items[0].quantity"}`, string(raw))
}
