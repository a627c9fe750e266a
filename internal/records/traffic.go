package records

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mssola/user_agent"
	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/aggregate"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

const topPaths = 10

// VisitInput is the page-view beacon sent by the portal front-end. Device,
// browser and OS are inferred from the User-Agent when left empty.
type VisitInput struct {
	Pathname   string `json:"pathname" validate:"required,startswith=/,max=512"`
	Referrer   string `json:"referrer" validate:"max=2048"`
	SessionID  string `json:"sessionId" validate:"required,max=128"`
	DeviceType string `json:"deviceType" validate:"max=32"`
	Browser    string `json:"browser" validate:"max=64"`
	OS         string `json:"os" validate:"max=64"`
}

type TrafficSummary struct {
	Since          time.Time         `json:"since"`
	TotalVisits    int               `json:"totalVisits"`
	UniqueSessions int               `json:"uniqueSessions"`
	TopPaths       []aggregate.Tally `json:"topPaths"`
	Devices        []aggregate.Tally `json:"devices"`
	Browsers       []aggregate.Tally `json:"browsers"`
	Systems        []aggregate.Tally `json:"operatingSystems"`
	Daily          []aggregate.Tally `json:"daily"`
}

type Traffic struct {
	base
}

func NewTraffic(store repo.Store, log *zap.Logger, opts ...Option) *Traffic {
	return &Traffic{base: newBase(store, log, opts)}
}

// Record stores one page view.
func (t *Traffic) Record(ctx context.Context, in VisitInput, userAgent string) (models.TrafficVisit, error) {
	trim(&in.Pathname, &in.Referrer, &in.SessionID, &in.DeviceType, &in.Browser, &in.OS)
	if err := check(in); err != nil {
		return models.TrafficVisit{}, err
	}
	device, browser, system := ParseUserAgent(userAgent)
	visit := models.TrafficVisit{
		ID:         t.newID(),
		Pathname:   in.Pathname,
		Referrer:   in.Referrer,
		DeviceType: firstNonEmpty(in.DeviceType, device),
		Browser:    firstNonEmpty(in.Browser, browser),
		OS:         firstNonEmpty(in.OS, system),
		SessionID:  in.SessionID,
		Timestamp:  t.stamp(),
	}
	if err := t.store.Put(ctx, TrafficCollection, visit.ID, visit.Fields()); err != nil {
		return models.TrafficVisit{}, models.StoreFailure("put", err)
	}
	return visit, nil
}

// Summary aggregates the visits recorded at or after since. Admins only.
func (t *Traffic) Summary(ctx context.Context, actor models.Actor, since time.Time) (TrafficSummary, error) {
	if !actor.IsAdmin() {
		return TrafficSummary{}, models.ErrForbidden
	}
	docs, err := t.store.Query(ctx, TrafficCollection, nil)
	if err != nil {
		return TrafficSummary{}, models.StoreFailure("query", err)
	}
	visits := make([]models.TrafficVisit, 0, len(docs))
	for _, d := range docs {
		v := models.TrafficVisitFromDocument(d)
		if v.Timestamp.Before(since) {
			continue
		}
		visits = append(visits, v)
	}

	sessions := map[string]bool{}
	for _, v := range visits {
		sessions[v.SessionID] = true
	}
	paths := aggregate.Count(visits, func(v models.TrafficVisit) string { return v.Pathname })
	if len(paths) > topPaths {
		paths = paths[:topPaths]
	}
	daily := aggregate.Count(visits, func(v models.TrafficVisit) string { return v.Timestamp.Format(dateLayout) })
	sort.SliceStable(daily, func(i, j int) bool { return daily[i].Key < daily[j].Key })

	return TrafficSummary{
		Since:          since.UTC(),
		TotalVisits:    len(visits),
		UniqueSessions: len(sessions),
		TopPaths:       paths,
		Devices:        aggregate.Count(visits, func(v models.TrafficVisit) string { return v.DeviceType }),
		Browsers:       aggregate.Count(visits, func(v models.TrafficVisit) string { return v.Browser }),
		Systems:        aggregate.Count(visits, func(v models.TrafficVisit) string { return v.OS }),
		Daily:          daily,
	}, nil
}

// ParseUserAgent reduces a User-Agent header to a device class, a browser
// family and an operating system family.
func ParseUserAgent(header string) (device, browser, system string) {
	if strings.TrimSpace(header) == "" {
		return "unknown", "Other", "Other"
	}
	ua := user_agent.New(header)
	lower := strings.ToLower(header)

	switch {
	case ua.Bot() || strings.Contains(lower, "bot/") || strings.Contains(lower, "spider"):
		device = "bot"
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		device = "tablet"
	case ua.Mobile() || strings.Contains(lower, "mobi") || strings.Contains(lower, "iphone") || strings.Contains(lower, "android"):
		device = "mobile"
	default:
		device = "desktop"
	}

	name, _ := ua.Browser()
	switch {
	case name == "Edge" || strings.Contains(lower, "edg/"):
		browser = "Edge"
	case name == "Opera" || strings.Contains(lower, "opr/"):
		browser = "Opera"
	case name == "Chrome" || strings.Contains(lower, "crios/"):
		browser = "Chrome"
	case name == "Firefox" || strings.Contains(lower, "fxios/"):
		browser = "Firefox"
	case name == "Safari":
		browser = "Safari"
	default:
		browser = "Other"
	}

	osName := strings.ToLower(ua.OS())
	switch {
	case strings.Contains(osName, "windows"):
		system = "Windows"
	case strings.Contains(osName, "iphone") || strings.Contains(osName, "ipad") || strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad"):
		system = "iOS"
	case strings.Contains(osName, "android"):
		system = "Android"
	case strings.Contains(osName, "mac os"):
		system = "macOS"
	case strings.Contains(osName, "linux"):
		system = "Linux"
	default:
		system = "Other"
	}
	return device, browser, system
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
