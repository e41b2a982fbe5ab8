package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/raushankrgupta/tailorme/stats"
	"github.com/raushankrgupta/tailorme/utils"
)

// StatsHandler returns the tailor's dashboard
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Stats API]")

	dashboard, err := h.Orders.Dashboard(r.Context(), currentSession(r).UID)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, dashboard)
}

// StatsStreamHandler recomputes the dashboard whenever orders or records change
func (h *Handler) StatsStreamHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Stats Stream API]")

	sub, err := h.Orders.WatchDashboard(r.Context(), currentSession(r).UID)
	if err != nil {
		utils.RespondAPIError(w, &logMessageBuilder, err)
		return
	}
	serveStream(w, r, &logMessageBuilder, sub, func(d stats.Dashboard) (string, interface{}, bool) {
		return "stats", d, false
	})
}
