package httpapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/DoyleJ11/stage-quiz-backend/internal/hub"
	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const qrSize = 256

// SessionQR serves a PNG QR code pointing players at the join page for an
// open session.
func SessionQR(h *hub.Hub, publicURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		reply := make(chan *hub.SessionView, 1)
		select {
		case h.Inbox() <- hub.GetSession{Code: code, Reply: reply}:
		case <-r.Context().Done():
			return
		case <-h.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}

		var view *hub.SessionView
		select {
		case view = <-reply:
		case <-r.Context().Done():
			return
		case <-h.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		if view == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		link, err := JoinURL(publicURL, code)
		if err != nil {
			log.Error("bad PUBLIC_URL", zap.Error(err))
			http.Error(w, "failed to build join link", http.StatusInternalServerError)
			return
		}

		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			log.Error("qr encode failed", zap.String("code", code), zap.Error(err))
			http.Error(w, "failed to render qr code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

// JoinURL appends the session code to the public join page.
func JoinURL(publicURL, code string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
