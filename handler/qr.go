package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

// QRCode handles GET /qr/{shortCode}: a PNG encoding of the short URL.
// Only existence is checked here; password and expiry policies apply at
// redirect time, not when rendering the code.
func (h *URLHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	shortCode := mux.Vars(r)["shortCode"]

	if h.cache.GetURL(r.Context(), shortCode) == nil {
		if _, err := h.links.FindByCode(r.Context(), shortCode); err != nil {
			SendJSONError(w, http.StatusNotFound, errors.New("URL not found"), "")
			return
		}
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s/%s", h.baseURL, shortCode), qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Str("short_code", shortCode).Msg("Failed to generate QR code")
		SendJSONError(w, http.StatusInternalServerError, errors.New("internal server error"), "")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}
