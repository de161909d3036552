package httpx

import (
	"net/http"
)

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status string    `json:"status"`
	Auth   AuthState `json:"auth"`
}

// healthHandler reports liveness. It never waits for the startup check; the
// auth field shows where the check stands.
func healthHandler(shell *Shell) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, _ := shell.Snapshot()
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Auth: state})
	}
}
