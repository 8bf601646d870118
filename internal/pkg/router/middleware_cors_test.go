package router

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h := SecureHeaders(CORS(CORSConfig{Origin: "https://portfolio.dev"})(next))

	t.Run("preflight answers 204", func(t *testing.T) {
		rec := serve(h, http.MethodOptions, "/mail-api", "", map[string]string{
			"Origin":                        "https://portfolio.dev",
			"Access-Control-Request-Method": http.MethodPost,
		})

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, "https://portfolio.dev", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "OPTIONS, POST", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("bare options answers 204", func(t *testing.T) {
		rec := serve(h, http.MethodOptions, "/anything", "", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("actual request from allowed origin", func(t *testing.T) {
		rec := serve(h, http.MethodPost, "/mail-api", "", map[string]string{"Origin": "https://portfolio.dev"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "https://portfolio.dev", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Values("Vary"), "Origin")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("every response carries the configured origin", func(t *testing.T) {
		rec := serve(h, http.MethodPost, "/mail-api", "", map[string]string{"Origin": "https://evil.example"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "https://portfolio.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
