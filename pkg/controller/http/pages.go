package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stridelog/stridelog/frontend"
	"github.com/stridelog/stridelog/pkg/utils/errutil"
)

// renderPage writes the named template. Whatever the handler already did,
// a render failure is a 500.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := frontend.Render(w, name, data); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
	}
}

// relativeTime renders a timestamp the way the dashboard shows it: rough
// and human, not precise.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return "on " + t.Format("2006-01-02")
	}
}
