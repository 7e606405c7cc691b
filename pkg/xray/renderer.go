package xray

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ekaya-inc/xray-engine/pkg/cards"
)

// PrintRenderer is a DashboardRenderer that writes the dashboard as
// indented JSON to an io.Writer instead of creating anything (spec §11's
// "stdout dashboard renderer" supplement, standing in for the external
// dashboard-creation boundary spec §6 leaves out of scope).
type PrintRenderer struct {
	Out io.Writer
}

type printedDashboard struct {
	ID          DashboardID     `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Cards       []cards.Instance `json:"cards"`
}

// CreateDashboard assigns a fresh random id, writes the dashboard as JSON
// to r.Out, and returns the assigned id.
func (r PrintRenderer) CreateDashboard(meta DashboardMeta, instances []cards.Instance) (DashboardID, error) {
	id := DashboardID(uuid.New().String())
	doc := printedDashboard{
		ID:          id,
		Title:       meta.Title,
		Description: meta.Description,
		Cards:       instances,
	}
	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("xray: printing dashboard: %w", err)
	}
	return id, nil
}
