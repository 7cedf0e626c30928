package screening

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/hireops/hireops/internal/store"
)

// telemetry ring capacity per link
const maxSnapshots = 100

// Snapshot is one face-tracking sample from the candidate's browser
type Snapshot struct {
	AttentionScore float64   `json:"attention_score"`
	FacePresent    bool      `json:"face_present"`
	At             time.Time `json:"at"`
}

// FaceTelemetry is the stored ring plus its running aggregates
type FaceTelemetry struct {
	Snapshots             []Snapshot `json:"snapshots"`
	AvgAttentionScore     float64    `json:"avg_attention_score"`
	FacePresentPercentage float64    `json:"face_present_percentage"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// RecordTelemetry appends a snapshot to the link's ring (oldest
// samples fall off past the cap) and recomputes the aggregates. The
// aggregates are mirrored onto the application for the dashboard.
func (e *Engine) RecordTelemetry(ctx context.Context, token string, snap Snapshot) (*FaceTelemetry, error) {
	link, err := e.store.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Status == store.LinkStatusExpired {
		return nil, ErrExpired
	}

	var tel FaceTelemetry
	if link.FaceTrackingJSON != "" {
		json.Unmarshal([]byte(link.FaceTrackingJSON), &tel)
	}

	if snap.At.IsZero() {
		snap.At = e.now()
	}
	tel.Snapshots = append(tel.Snapshots, snap)
	if len(tel.Snapshots) > maxSnapshots {
		tel.Snapshots = tel.Snapshots[len(tel.Snapshots)-maxSnapshots:]
	}

	var attentionSum float64
	present := 0
	for _, s := range tel.Snapshots {
		attentionSum += s.AttentionScore
		if s.FacePresent {
			present++
		}
	}
	n := float64(len(tel.Snapshots))
	tel.AvgAttentionScore = math.Round(attentionSum/n*1000) / 1000
	tel.FacePresentPercentage = math.Round(float64(present)/n*100*10) / 10
	tel.UpdatedAt = e.now()

	raw, err := json.Marshal(tel)
	if err != nil {
		return nil, err
	}
	link.FaceTrackingJSON = string(raw)
	if err := e.store.SaveLink(ctx, link); err != nil {
		return nil, err
	}

	unlock := e.store.LockApplication(link.ApplicationID)
	defer unlock()
	app, err := e.store.GetApplication(ctx, link.ApplicationID)
	if err == nil {
		app.FaceTrackingJSON = string(raw)
		e.store.SaveApplication(ctx, app)
	}

	return &tel, nil
}
