package httpapi

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

var startedAt = time.Now()

// healthz reports liveness plus basic host statistics.
func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(startedAt).Round(time.Second).String(),
	}

	if info, err := host.InfoWithContext(r.Context()); err == nil {
		payload["hostname"] = info.Hostname
		payload["os"] = info.OS
		payload["host_uptime_seconds"] = info.Uptime
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		payload["memory_used_percent"] = vm.UsedPercent
	}

	writeJSON(w, http.StatusOK, payload)
}
