package ticket

import (
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/service/notification"
)

// Edge is one allowed step of a ticket type's workflow.
type Edge struct {
	From   model.TicketStatus
	Action model.TicketAction
	To     model.TicketStatus
	Roles  []model.ActorRole
	// Notify is the patient template sent after the step commits. Empty
	// means no notification.
	Notify string
}

var (
	careRoles     = []model.ActorRole{model.RoleDoctor, model.RoleClinic, model.RoleStaff}
	pharmacyRoles = []model.ActorRole{model.RolePharmacy, model.RoleStaff}
	labRoles      = []model.ActorRole{model.RoleLaboratory, model.RoleStaff}
)

var workflows = map[model.TicketType][]Edge{
	model.TicketTypeAppointment: {
		{model.TicketStatusPending, model.ActionConfirm, model.TicketStatusConfirmed,
			[]model.ActorRole{model.RoleDoctor, model.RoleClinic, model.RoleStaff, model.RoleSystem},
			notification.TemplateAppointmentConfirmed},
		{model.TicketStatusConfirmed, model.ActionComplete, model.TicketStatusCompleted, careRoles, ""},
		{model.TicketStatusPending, model.ActionCancel, model.TicketStatusCancelled,
			[]model.ActorRole{model.RolePatient, model.RoleDoctor, model.RoleClinic, model.RoleStaff},
			notification.TemplateAppointmentCancelled},
		{model.TicketStatusConfirmed, model.ActionCancel, model.TicketStatusCancelled,
			[]model.ActorRole{model.RolePatient, model.RoleDoctor, model.RoleClinic, model.RoleStaff},
			notification.TemplateAppointmentCancelled},
	},
	model.TicketTypePrescription: {
		{model.TicketStatusSentToPharmacy, model.ActionStartProcessing, model.TicketStatusProcessing, pharmacyRoles, ""},
		{model.TicketStatusProcessing, model.ActionMarkReady, model.TicketStatusReady, pharmacyRoles, notification.TemplatePrescriptionReady},
		{model.TicketStatusReady, model.ActionCollect, model.TicketStatusCollected,
			[]model.ActorRole{model.RolePatient, model.RolePharmacy, model.RoleStaff}, ""},
		{model.TicketStatusReady, model.ActionDispense, model.TicketStatusDispensed, pharmacyRoles, ""},
	},
	model.TicketTypeLabRequest: {
		{model.TicketStatusSentToLab, model.ActionCollectSample, model.TicketStatusSampleCollected, labRoles, ""},
		{model.TicketStatusSampleCollected, model.ActionStartProcessing, model.TicketStatusProcessing, labRoles, ""},
		{model.TicketStatusProcessing, model.ActionFulfill, model.TicketStatusFulfilled, labRoles, notification.TemplateLabFulfilled},
	},
	model.TicketTypeReferral: {
		{model.TicketStatusPending, model.ActionAccept, model.TicketStatusAccepted, careRoles, notification.TemplateReferralAccepted},
		{model.TicketStatusAccepted, model.ActionComplete, model.TicketStatusCompleted, careRoles, ""},
		{model.TicketStatusPending, model.ActionDecline, model.TicketStatusDeclined, careRoles, notification.TemplateReferralDeclined},
		{model.TicketStatusAccepted, model.ActionDecline, model.TicketStatusDeclined, careRoles, notification.TemplateReferralDeclined},
	},
}

var initialStatus = map[model.TicketType]model.TicketStatus{
	model.TicketTypeAppointment:  model.TicketStatusPending,
	model.TicketTypePrescription: model.TicketStatusSentToPharmacy,
	model.TicketTypeLabRequest:   model.TicketStatusSentToLab,
	model.TicketTypeReferral:     model.TicketStatusPending,
}

// cashAction is the only action that may carry a cash payment confirmation.
var cashAction = struct {
	Type   model.TicketType
	Action model.TicketAction
}{model.TicketTypeLabRequest, model.ActionCollectSample}

// KnownType reports whether t has a workflow.
func KnownType(t model.TicketType) bool {
	_, ok := workflows[t]
	return ok
}

// InitialStatus returns the status a new ticket of type t starts in.
func InitialStatus(t model.TicketType) (model.TicketStatus, bool) {
	s, ok := initialStatus[t]
	return s, ok
}

// Lookup finds the edge leaving from for action.
func Lookup(t model.TicketType, from model.TicketStatus, action model.TicketAction) (Edge, bool) {
	for _, e := range workflows[t] {
		if e.From == from && e.Action == action {
			return e, true
		}
	}
	return Edge{}, false
}

// IsTerminal reports whether no edge leaves status for type t.
func IsTerminal(t model.TicketType, status model.TicketStatus) bool {
	edges, ok := workflows[t]
	if !ok {
		return true
	}
	for _, e := range edges {
		if e.From == status {
			return false
		}
	}
	return true
}

// Actions lists the actions available from status.
func Actions(t model.TicketType, status model.TicketStatus) []model.TicketAction {
	var out []model.TicketAction
	for _, e := range workflows[t] {
		if e.From == status {
			out = append(out, e.Action)
		}
	}
	return out
}

func (e Edge) allows(role model.ActorRole) bool {
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func allowsCash(t model.TicketType, action model.TicketAction) bool {
	return t == cashAction.Type && action == cashAction.Action
}

// appointmentStatusFor maps an appointment ticket status onto the linked
// appointment's status.
func appointmentStatusFor(s model.TicketStatus) (model.AppointmentStatus, bool) {
	switch s {
	case model.TicketStatusPending:
		return model.AppointmentStatusPending, true
	case model.TicketStatusConfirmed:
		return model.AppointmentStatusConfirmed, true
	case model.TicketStatusCompleted:
		return model.AppointmentStatusCompleted, true
	case model.TicketStatusCancelled:
		return model.AppointmentStatusCancelled, true
	}
	return "", false
}
