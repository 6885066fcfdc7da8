package monitor

import (
	"fmt"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/teleop.bridge/internal/httputil"
)

// statusResponse is the body of /debug/bridge-stats.
type statusResponse struct {
	Uptime string          `json:"uptime"`
	Latest *StatsSnapshot  `json:"latest,omitempty"`
	Totals StatsSnapshot   `json:"totals"`
	Recent []StatsSnapshot `json:"recent,omitempty"`
}

// AttachAdminRoutes mounts the stats JSON and traffic chart under /debug/.
func (s *BridgeStats) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("bridge-stats", "Bridge packet statistics (JSON)", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Uptime: s.Uptime().Round(time.Second).String(),
			Latest: s.LatestSnapshot(),
			Totals: s.Totals(),
		}
		if httputil.QueryBool(r, "history") {
			resp.Recent = s.History()
		}
		httputil.WriteJSONOK(w, resp)
	})

	debug.HandleFunc("bridge-chart", "Bridge traffic chart", func(w http.ResponseWriter, r *http.Request) {
		page, err := RenderTrafficChart("Bridge Traffic", s.History())
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
}
