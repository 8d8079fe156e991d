package handler

import "net/http"

// PageHandler serves the static informational pages.
type PageHandler struct {
	views *Renderer
}

func NewPageHandler(views *Renderer) *PageHandler {
	return &PageHandler{views: views}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "index", Page{Title: "Welcome"})
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "dashboard", Page{Title: "Dashboard"})
}

func (h *PageHandler) UserFeedback(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "user_feedback", Page{Title: "Feedback"})
}

func (h *PageHandler) FinalOutput(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "final_output", Page{Title: "Done"})
}
