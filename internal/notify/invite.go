package notify

import (
	"time"

	ics "github.com/arran4/golang-ical"
)

const inviteProductID = "-//School Reception//Appointments//EN"

// Invite данные для приглашения в календарь родителя
type Invite struct {
	UID            string
	Summary        string
	Description    string
	Start          time.Time
	End            time.Time
	OrganizerName  string
	OrganizerEmail string
	AttendeeName   string
	AttendeeEmail  string
	Created        time.Time
}

// BuildInvite собирает iCalendar REQUEST с одним событием
func BuildInvite(inv Invite) string {
	cal := ics.NewCalendar()
	cal.SetProductId(inviteProductID)
	cal.SetMethod(ics.MethodRequest)

	created := inv.Created
	if created.IsZero() {
		created = time.Now()
	}

	event := cal.AddEvent(inv.UID)
	event.SetCreatedTime(created)
	event.SetDtStampTime(created)
	event.SetStartAt(inv.Start)
	event.SetEndAt(inv.End)
	event.SetSummary(inv.Summary)
	if inv.Description != "" {
		event.SetDescription(inv.Description)
	}
	if inv.OrganizerEmail != "" {
		event.SetOrganizer("mailto:"+inv.OrganizerEmail, ics.WithCN(inv.OrganizerName))
	}
	if inv.AttendeeEmail != "" {
		event.AddAttendee(inv.AttendeeEmail,
			ics.WithCN(inv.AttendeeName),
			ics.ParticipationRoleReqParticipant,
			ics.ParticipationStatusNeedsAction,
			ics.WithRSVP(true))
	}

	return cal.Serialize()
}
