package api

import (
	"gocoherence/domain/stats"
	"gocoherence/ports"
)

// NotifyingStore wraps a report store and announces every stored report on the hub
type NotifyingStore struct {
	ports.ReportStorePort
	hub *SSEHub
}

// NewNotifyingStore creates the decorator
func NewNotifyingStore(store ports.ReportStorePort, hub *SSEHub) *NotifyingStore {
	return &NotifyingStore{ReportStorePort: store, hub: hub}
}

// Put stores the report, then broadcasts report_ready with its headline numbers
func (s *NotifyingStore) Put(report *stats.Report) {
	s.ReportStorePort.Put(report)
	summary := toSummaryDTO(report.Summary)
	s.hub.Broadcast(RunEvent{
		Topic:     TopicReports,
		EventType: EventReportReady,
		RunID:     report.RunID.String(),
		Label:     report.Label,
		Data: map[string]interface{}{
			"devices":  summary.Devices,
			"duration": summary.DurationSeconds,
			"p_value":  summary.PValue,
			"mean_plv": summary.MeanPLV,
		},
	})
}
