// Package handlers agrupa os handlers HTTP do encurtador.
package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthHandler reports that the process is serving requests.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
