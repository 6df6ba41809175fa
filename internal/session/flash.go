package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookie holds a one-time message shown on the next page load.
const FlashCookie = "cb_flash"

// Flash is a one-time notification message.
type Flash struct {
	Type    string `json:"type"` // "success", "error", "info"
	Message string `json:"message"`
}

// SetFlash queues a message for the next page the browser loads.
func SetFlash(w http.ResponseWriter, typ, message string) {
	payload, err := json.Marshal(Flash{Type: typ, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// PopFlash returns the queued message, if any, and clears it.
func PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: FlashCookie, Value: "", Path: "/", HttpOnly: true, MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}
