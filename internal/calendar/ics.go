package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	methodRequest = ics.MethodRequest
	methodCancel  = ics.MethodCancel
	productID     = "-//casetrack//hearings//EN"
	timezone      = "Asia/Kolkata"

	propertyCaseNumber = ics.ComponentProperty("X-CASETRACK-CASE-NUMBER")
)

// reminders are the alarm triggers put on every scheduled hearing.
var reminders = []string{"-P7D", "-P1D"}

func summary(caseNumber string) string {
	return fmt.Sprintf("Court Hearing - %s", caseNumber)
}

func description(event Event) string {
	var parts []string
	if event.Petitioner != "" {
		parts = append(parts, fmt.Sprintf("Petitioner: %s", event.Petitioner))
	}
	if event.Respondent != "" {
		parts = append(parts, fmt.Sprintf("Respondent: %s", event.Respondent))
	}
	if event.Court != "" {
		parts = append(parts, fmt.Sprintf("Court: %s", event.Court))
	}
	parts = append(parts, "\nGenerated by casetrack")
	return strings.Join(parts, "\n")
}

type invite struct {
	method   ics.Method
	uid      string
	sequence int64
	stamp    time.Time
	event    Event
}

// render builds an iCalendar object holding a single all day event.
func (i invite) render() []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(i.method)
	cal.SetXWRTimezone(timezone)

	vevent := cal.AddEvent(i.uid)
	vevent.SetSequence(int(i.sequence))
	vevent.SetDtStampTime(i.stamp.UTC())
	vevent.SetAllDayStartAt(i.event.Date.Time)
	vevent.SetAllDayEndAt(i.event.Date.AddDate(0, 0, 1))
	vevent.SetSummary(summary(i.event.CaseNumber))
	vevent.SetProperty(propertyCaseNumber, i.event.CaseNumber)

	if i.method == methodCancel {
		vevent.SetStatus(ics.ObjectStatusCancelled)
		return []byte(cal.Serialize())
	}

	vevent.SetDescription(description(i.event))
	vevent.SetStatus(ics.ObjectStatusConfirmed)
	vevent.SetTimeTransparency(ics.TransparencyTransparent)
	for _, trigger := range reminders {
		alarm := vevent.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(trigger)
		alarm.SetDescription(summary(i.event.CaseNumber))
	}
	return []byte(cal.Serialize())
}
