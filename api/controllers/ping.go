package controllers

import (
	"net/http"

	"github.com/angelmondragon/matreq-backend/api/middleware"
	"github.com/angelmondragon/matreq-backend/api/responses"
)

// PrivatePing echoes the caller so clients can check their token.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if actor, err := middleware.ActorFromContext(r.Context()); err == nil {
			payload["role"] = string(actor.Role)
			payload["user_id"] = actor.UserID.String()
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "admin", "status": "ok"})
	}
}
