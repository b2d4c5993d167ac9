// Package icsutil writes iCalendar (RFC 5545) feeds.
package icsutil

import (
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const defaultProdID = "-//residencyhub//morning meetings//EN"

// uidSpace namespaces the SHA-1 UIDs so they never collide with other feeds.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://residencyhub/ics"))

// StableUID derives a UID that stays the same across exports for the same key.
func StableUID(kind, key string) string {
	return uuid.NewSHA1(uidSpace, []byte(kind+":"+key)).String() + "@residencyhub"
}

// Event is one VEVENT. Start and End are written in UTC.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	URL         string
	Start       time.Time
	End         time.Time
	Stamp       time.Time // DTSTAMP; zero uses the calendar's Now
}

// Calendar is a VCALENDAR with its events.
type Calendar struct {
	ProdID string
	Name   string
	Events []Event
	Now    func() time.Time
}

// Build converts c into a golang-ical calendar published with METHOD:PUBLISH.
func (c Calendar) Build() *ics.Calendar {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	prodID := c.ProdID
	if prodID == "" {
		prodID = defaultProdID
	}

	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	if c.Name != "" {
		cal.SetXWRCalName(c.Name)
	}

	for _, e := range c.Events {
		stamp := e.Stamp
		if stamp.IsZero() {
			stamp = now()
		}
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(e.Start.UTC())
		ev.SetEndAt(e.End.UTC())
		ev.SetSummary(e.Summary)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if e.URL != "" {
			ev.SetURL(e.URL)
		}
	}
	return cal
}

// Write renders the calendar with CRLF line endings and 75-octet folding.
func (c Calendar) Write(w io.Writer) error {
	return c.Build().SerializeTo(w)
}
