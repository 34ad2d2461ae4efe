package httpapi

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"Method":     r.Method,
					"RequestURI": r.RequestURI,
					"Panic":      rec,
				}).Error("handler panic")
				writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func logger(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"Method":     r.Method,
			"RequestURI": r.RequestURI,
			"Route":      name,
			"Duration":   time.Since(start).String(),
		}).Debug("request served")
	})
}
