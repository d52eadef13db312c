package web

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nasermirzaei89/gazette/stats"
)

const eventStatistics = "statistics"

// HandleStatisticsStream pushes the dashboard charts as server-sent events on every statistics tick.
func (h *Handler) HandleStatisticsStream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		period := stats.ParsePeriod(r.URL.Query().Get("period"))
		rc := http.NewResponseController(w)

		updates := make(chan stats.Statistics, 1)

		unsubscribe := h.statsSvc.Subscribe(func(snapshot stats.Statistics) {
			// keep only the latest snapshot for a slow reader
			select {
			case <-updates:
			default:
			}

			select {
			case updates <- snapshot:
			default:
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		err := h.writeStatisticsEvent(w, rc, period, h.statsSvc.Snapshot())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to write statistics event", "error", err)

			return
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case snapshot := <-updates:
				err = h.writeStatisticsEvent(w, rc, period, snapshot)
				if err != nil {
					slog.DebugContext(r.Context(), "statistics stream closed", "error", err)

					return
				}
			}
		}
	})
}

func (h *Handler) writeStatisticsEvent(
	w http.ResponseWriter,
	rc *http.ResponseController,
	period stats.Period,
	snapshot stats.Statistics,
) error {
	var buf bytes.Buffer

	err := h.tpl.ExecuteTemplate(&buf, "stats-charts", newStatsCharts(snapshot, period))
	if err != nil {
		return fmt.Errorf("failed to render statistics: %w", err)
	}

	var event strings.Builder

	event.WriteString("event: " + eventStatistics + "\n")

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		event.WriteString("data: " + line + "\n")
	}

	event.WriteString("\n")

	_, err = w.Write([]byte(event.String()))
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	err = rc.Flush()
	if err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	return nil
}
