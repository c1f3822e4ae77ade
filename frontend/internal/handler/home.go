package handler

import (
	"net/http"

	frontend_domain "github.com/itchan-dev/authgate/frontend/internal/domain"
)

func (h *Handler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, "home.html", frontend_domain.HomePageData{Welcome: h.welcome})
}
