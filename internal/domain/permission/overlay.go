package permission

// Mark is one calendar dot: a request touching a day and its display color.
type Mark struct {
	RequestID string `json:"sourceRequestId"`
	Color     string `json:"color"`
}

// Overlay maps an ISO date (YYYY-MM-DD) to the marks for that day, in the
// iteration order of the source request list.
type Overlay map[string][]Mark

var typeColors = map[string]string{
	TypeVacation: "#1e88e5",
	TypeMedical:  "#e53935",
	TypePersonal: "#fb8c00",
}

const fallbackColor = "#9e9e9e"

// ColorFor returns the display color for a leave type. Unrecognized types get
// the fallback color rather than failing the build.
func ColorFor(leaveType string) string {
	if color, ok := typeColors[leaveType]; ok {
		return color
	}
	return fallbackColor
}

// MalformedRange flags a request whose start date falls after its end date.
// Such a request contributes no marks; the caller decides how to report it.
type MalformedRange struct {
	RequestID string
}

// BuildOverlay expands every request into one mark per covered day, inclusive
// of both endpoints. The walk uses date arithmetic, so month and year
// rollovers are handled by time.AddDate. Input requests are never mutated.
func BuildOverlay(requests []Request) (Overlay, []MalformedRange) {
	overlay := make(Overlay)
	var malformed []MalformedRange
	for _, req := range requests {
		start := dateOnly(req.StartDate)
		end := dateOnly(req.EndDate)
		if end.Before(start) {
			malformed = append(malformed, MalformedRange{RequestID: req.ID})
			continue
		}
		color := ColorFor(req.LeaveType)
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			key := day.Format(dateLayout)
			overlay[key] = append(overlay[key], Mark{RequestID: req.ID, Color: color})
		}
	}
	return overlay, malformed
}
