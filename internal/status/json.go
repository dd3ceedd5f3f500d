package status

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/door-counter/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Mode          string       `json:"mode"`
	LoggedIn      bool         `json:"logged_in"`
	Alarmed       bool         `json:"alarmed"`
	Armed         bool         `json:"armed"`
	Breaks        uint32       `json:"breaks"`
	Customers     uint32       `json:"customers"`
	BusiestHour   string       `json:"busiest_hour"`
	Histogram     []uint32     `json:"histogram"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Counters      CountersJSON `json:"counters"`
	Config        ConfigJSON   `json:"config"`
}

// CountersJSON is the JSON representation of the event source counters.
type CountersJSON struct {
	DroppedKeys   uint32 `json:"dropped_keys"`
	KeyFaults     uint32 `json:"key_faults"`
	SensorSamples uint32 `json:"sensor_samples"`
	SensorErrors  uint32 `json:"sensor_errors"`
}

// ConfigJSON is the JSON representation of terminal config.
type ConfigJSON struct {
	AdminName    string `json:"admin_name,omitempty"`
	SensorSource string `json:"sensor_source"`
	SampleMs     int64  `json:"sample_ms"`
	ThresholdMV  int64  `json:"threshold_mv"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	PromptClock  bool   `json:"prompt_clock"`
}

// BusiestHourText renders an hour of the day the way the display does,
// e.g. "3PM" or "12AM".
func BusiestHourText(hour int) string {
	h, suffix := logic.TwelveHour(hour)
	return fmt.Sprintf("%d%s", h, suffix)
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Mode:          snap.Mode.String(),
		LoggedIn:      snap.LoggedIn,
		Alarmed:       snap.Alarmed,
		Armed:         snap.Armed,
		Breaks:        snap.Breaks,
		Customers:     snap.Customers,
		BusiestHour:   BusiestHourText(snap.BusiestHour),
		Histogram:     append([]uint32(nil), snap.Histogram[:]...),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Counters: CountersJSON{
			DroppedKeys:   snap.Counters.DroppedKeys,
			KeyFaults:     snap.Counters.KeyFaults,
			SensorSamples: snap.Counters.SensorSamples,
			SensorErrors:  snap.Counters.SensorErrors,
		},
		Config: ConfigJSON{
			AdminName:    snap.Config.AdminName,
			SensorSource: snap.Config.SensorSource,
			SampleMs:     snap.Config.SampleMs,
			ThresholdMV:  snap.Config.ThresholdMV,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			PromptClock:  snap.Config.PromptClock,
		},
	}
}

// FormatJSON returns the indented JSON status (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for a lifecycle event
// such as STARTUP, HEARTBEAT or SHUTDOWN.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// Fields returns the headline values of snap as logrus fields.
func Fields(snap Snapshot) log.Fields {
	return log.Fields{
		"mode":         snap.Mode.String(),
		"alarmed":      snap.Alarmed,
		"breaks":       snap.Breaks,
		"customers":    snap.Customers,
		"busiest_hour": BusiestHourText(snap.BusiestHour),
		"dropped_keys": snap.Counters.DroppedKeys,
		"sensor_errs":  snap.Counters.SensorErrors,
		"uptime":       snap.Uptime().Truncate(time.Second).String(),
	}
}
