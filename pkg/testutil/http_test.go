package testutil

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func jsonHandler(status int, body any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// Body helpers must not consume the recorder: tests routinely assert
// against the same response more than once.
func TestReadBody_Repeatable(t *testing.T) {
	h := jsonHandler(http.StatusOK, map[string]any{"status": "VERIFIED", "version": 3})
	rr := DoRequest(h, NewRequest(t, http.MethodGet, "/visits/abc"))

	first := ReadBody(t, rr)
	second := ReadBody(t, rr)
	assert.NotEmpty(t, second)
	assert.Equal(t, first, second)

	AssertJSONContains(t, rr, "status", "VERIFIED")
	AssertJSONContains(t, rr, "version", float64(3))
}

func TestErrorAssertions_Repeatable(t *testing.T) {
	h := jsonHandler(http.StatusConflict, map[string]string{
		"error":   "invalid_transition",
		"message": "check_out not permitted from status SCHEDULED",
	})
	rr := DoRequest(h, NewRequest(t, http.MethodPost, "/visits/abc/check-out"))

	AssertStatusAndError(t, rr, http.StatusConflict, "invalid_transition")
	body := UnmarshalErrorResponse(t, rr)
	assert.Contains(t, body["message"], "SCHEDULED")
}
