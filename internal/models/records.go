package models

import (
	"strings"
	"time"

	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

// ResultRecord is one test score. Records are append-only.
type ResultRecord struct {
	ID          string    `json:"id"`
	StudentName string    `json:"studentName"`
	Class       string    `json:"class"`
	Batch       string    `json:"batch,omitempty"`
	Subject     string    `json:"subject"`
	Marks       float64   `json:"marks"`
	OutOf       float64   `json:"outOf"`
	TestDate    string    `json:"testDate"`
	Remarks     string    `json:"remarks,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
}

func (r ResultRecord) Fields() repo.Fields {
	return repo.Fields{
		"studentName": r.StudentName,
		"class":       r.Class,
		"batch":       r.Batch,
		"subject":     r.Subject,
		"marks":       r.Marks,
		"outOf":       r.OutOf,
		"testDate":    r.TestDate,
		"remarks":     r.Remarks,
		"createdAt":   r.CreatedAt,
		"createdBy":   r.CreatedBy,
	}
}

// ResultFromDocument decodes leniently: non-numeric marks or outOf become 0.
func ResultFromDocument(d repo.Document) ResultRecord {
	f := d.Fields
	return ResultRecord{
		ID:          d.Key,
		StudentName: f.String("studentName"),
		Class:       f.String("class"),
		Batch:       f.String("batch"),
		Subject:     f.String("subject"),
		Marks:       f.Number("marks"),
		OutOf:       f.Number("outOf"),
		TestDate:    f.String("testDate"),
		Remarks:     f.String("remarks"),
		CreatedAt:   f.Time("createdAt"),
		CreatedBy:   f.String("createdBy"),
	}
}

// Severity is ordered: Low < Medium < High < Critical.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank is 1 for Low through 4 for Critical, 0 when unknown.
func (s Severity) Rank() int {
	for i, v := range severities {
		if v == s {
			return i + 1
		}
	}
	return 0
}

// ParseSeverity accepts any letter case.
func ParseSeverity(s string) (Severity, bool) {
	for _, v := range severities {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// Complaint is one entry of a student's complaint bucket.
type Complaint struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Severity   Severity `json:"severity"`
	ReportedBy string   `json:"reportedBy"`
	Timestamp  int64    `json:"timestamp"`
}

// ComplaintBucket groups the complaints filed against one student of a class and batch.
type ComplaintBucket struct {
	Key         string      `json:"key"`
	StudentName string      `json:"studentName"`
	Class       string      `json:"class"`
	Batch       string      `json:"batch"`
	Complaints  []Complaint `json:"complaints"`
	Version     int64       `json:"version"`
}

func (b ComplaintBucket) Fields() repo.Fields {
	items := make([]interface{}, 0, len(b.Complaints))
	for _, c := range b.Complaints {
		items = append(items, map[string]interface{}{
			"id":         c.ID,
			"text":       c.Text,
			"severity":   string(c.Severity),
			"reportedBy": c.ReportedBy,
			"timestamp":  c.Timestamp,
		})
	}
	return repo.Fields{
		"studentName": b.StudentName,
		"class":       b.Class,
		"batch":       b.Batch,
		"complaints":  items,
		"version":     b.Version,
	}
}

func ComplaintBucketFromDocument(d repo.Document) ComplaintBucket {
	f := d.Fields
	b := ComplaintBucket{
		Key:         d.Key,
		StudentName: f.String("studentName"),
		Class:       f.String("class"),
		Batch:       f.String("batch"),
		Version:     f.Int("version"),
	}
	for _, item := range f.List("complaints") {
		b.Complaints = append(b.Complaints, Complaint{
			ID:         item.String("id"),
			Text:       item.String("text"),
			Severity:   Severity(item.String("severity")),
			ReportedBy: item.String("reportedBy"),
			Timestamp:  item.Int("timestamp"),
		})
	}
	return b
}

// SyllabusItem tracks how far one topic of a subject has been covered.
type SyllabusItem struct {
	Key                     string    `json:"key"`
	Class                   string    `json:"class"`
	Batch                   string    `json:"batch"`
	Subject                 string    `json:"subject"`
	Topic                   string    `json:"topic"`
	CompletionStatus        int       `json:"completionStatus"`
	Description             string    `json:"description,omitempty"`
	EstimatedCompletionDate string    `json:"estimatedCompletionDate,omitempty"`
	UpdatedAt               time.Time `json:"updatedAt"`
	UpdatedBy               string    `json:"updatedBy"`
}

func (s SyllabusItem) Fields() repo.Fields {
	return repo.Fields{
		"class":                   s.Class,
		"batch":                   s.Batch,
		"subject":                 s.Subject,
		"topic":                   s.Topic,
		"completionStatus":        int64(s.CompletionStatus),
		"description":             s.Description,
		"estimatedCompletionDate": s.EstimatedCompletionDate,
		"updatedAt":               s.UpdatedAt,
		"updatedBy":               s.UpdatedBy,
	}
}

func SyllabusFromDocument(d repo.Document) SyllabusItem {
	f := d.Fields
	return SyllabusItem{
		Key:                     d.Key,
		Class:                   f.String("class"),
		Batch:                   f.String("batch"),
		Subject:                 f.String("subject"),
		Topic:                   f.String("topic"),
		CompletionStatus:        int(f.Int("completionStatus")),
		Description:             f.String("description"),
		EstimatedCompletionDate: f.String("estimatedCompletionDate"),
		UpdatedAt:               f.Time("updatedAt"),
		UpdatedBy:               f.String("updatedBy"),
	}
}

// TrafficVisit is a single page view. Visits are written once and only aggregated.
type TrafficVisit struct {
	ID         string    `json:"id"`
	Pathname   string    `json:"pathname"`
	Referrer   string    `json:"referrer,omitempty"`
	DeviceType string    `json:"deviceType"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	SessionID  string    `json:"sessionId"`
	Timestamp  time.Time `json:"timestamp"`
}

func (v TrafficVisit) Fields() repo.Fields {
	return repo.Fields{
		"pathname":   v.Pathname,
		"referrer":   v.Referrer,
		"deviceType": v.DeviceType,
		"browser":    v.Browser,
		"os":         v.OS,
		"sessionId":  v.SessionID,
		"timestamp":  v.Timestamp,
	}
}

func TrafficVisitFromDocument(d repo.Document) TrafficVisit {
	f := d.Fields
	return TrafficVisit{
		ID:         d.Key,
		Pathname:   f.String("pathname"),
		Referrer:   f.String("referrer"),
		DeviceType: f.String("deviceType"),
		Browser:    f.String("browser"),
		OS:         f.String("os"),
		SessionID:  f.String("sessionId"),
		Timestamp:  f.Time("timestamp"),
	}
}
