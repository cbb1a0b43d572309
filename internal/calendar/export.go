// Package calendar renders a user's slots as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"github.com/roach88/slotswap/internal/slot"
)

const productID = "-//slotswap//slot export//EN"

// StatusProp carries the slot status on each VEVENT.
const StatusProp = "X-SLOTSWAP-STATUS"

// Build returns a VCALENDAR with one VEVENT per slot. stamp is used as
// DTSTAMP for every event.
func Build(name string, events []slot.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}

	for _, e := range events {
		cal.Children = append(cal.Children, vevent(e, stamp).Component)
	}
	return cal
}

func vevent(e slot.Event, stamp time.Time) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, e.ID)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
	ev.Props.SetText(ical.PropSummary, e.Title)
	ev.Props.SetText(StatusProp, string(e.Status))

	seq := ical.NewProp(ical.PropSequence)
	seq.Value = strconv.FormatInt(e.Version-1, 10)
	ev.Props.Set(seq)

	// Swappable slots are offered away, so they do not block time.
	transp := "OPAQUE"
	if e.Status == slot.StatusSwappable {
		transp = "TRANSPARENT"
	}
	ev.Props.SetText("TRANSP", transp)
	return ev
}

// Write encodes the feed to w.
func Write(w io.Writer, name string, events []slot.Event, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(Build(name, events, stamp)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}
