package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-tracker/internal/views"
)

const (
	flashCookie = "portfolio_flash"
	flashMaxAge = 60
)

type flashPayload struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

// redirectWithFlash performs the redirect half of Post/Redirect/Get. The
// outcome of the write travels in a short-lived cookie consumed by the next
// page render.
func redirectWithFlash(c echo.Context, path string, params url.Values, kind, message string) error {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    encodeFlash(views.Flash{Kind: kind, Message: message}),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	target := path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// takeFlash returns the pending flash, if any, and clears its cookie.
func takeFlash(c echo.Context) *views.Flash {
	cookie, err := c.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	f, ok := decodeFlash(cookie.Value)
	if !ok {
		return nil
	}
	return &f
}

func encodeFlash(f views.Flash) string {
	raw, _ := json.Marshal(flashPayload{Kind: f.Kind, Message: f.Message})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeFlash(value string) (views.Flash, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return views.Flash{}, false
	}
	var payload flashPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return views.Flash{}, false
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		return views.Flash{}, false
	}
	switch payload.Kind {
	case views.FlashSuccess, views.FlashError, views.FlashInfo, views.FlashWarning:
	default:
		payload.Kind = views.FlashInfo
	}
	return views.Flash{Kind: payload.Kind, Message: message}, true
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}
