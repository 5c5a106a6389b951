package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"name":"x"}`},
		{name: "empty", payload: ``, wantErr: true},
		{name: "unknown field", payload: `{"name":"x","extra":1}`, wantErr: true},
		{name: "malformed", payload: `{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var dst body
			err := DecodeJSON(r, &dst)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "x", dst.Name)
		})
	}
}

func TestRespond(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondJSON(w, http.StatusCreated, map[string]int{"id": 1})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.JSONEq(t, `{"id":1}`, w.Body.String())
	})

	t.Run("nil body", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondJSON(w, http.StatusNoContent, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("errors", func(t *testing.T) {
		cases := map[int]func(w http.ResponseWriter){
			http.StatusBadRequest:          func(w http.ResponseWriter) { RespondBadRequest(w, "m") },
			http.StatusUnauthorized:        func(w http.ResponseWriter) { RespondUnauthorized(w, "m") },
			http.StatusForbidden:           func(w http.ResponseWriter) { RespondForbidden(w, "m") },
			http.StatusNotFound:            func(w http.ResponseWriter) { RespondNotFound(w, "m") },
			http.StatusConflict:            func(w http.ResponseWriter) { RespondConflict(w, "m") },
			http.StatusGone:                func(w http.ResponseWriter) { RespondGone(w, "m") },
			http.StatusInternalServerError: func(w http.ResponseWriter) { RespondInternalError(w) },
		}
		for status, respond := range cases {
			w := httptest.NewRecorder()
			respond(w)
			assert.Equal(t, status, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		}
	})
}
