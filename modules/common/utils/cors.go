package utils

import "net/http"

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// SetCORSHeaders - 모든 origin 허용 CORS 헤더
func SetCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
}

// WritePreflight answers an OPTIONS request with "ok".
func WritePreflight(w http.ResponseWriter) {
	SetCORSHeaders(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// CORS 미들웨어
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORSHeaders(w)

		if r.Method == http.MethodOptions {
			WritePreflight(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
