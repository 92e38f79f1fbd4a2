package models

import "time"

type Appointment struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	ProviderID int64      `json:"provider_id"`
	Date       time.Time  `json:"date"`
	CanceledAt *time.Time `json:"canceled_at"`
	Past       bool       `json:"past"`
	Cancelable bool       `json:"cancelable"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsCanceled reports whether canceled_at is set.
func (a *Appointment) IsCanceled() bool {
	return a.CanceledAt != nil
}

// AppointmentParty is the subset of a User attached to an appointment payload.
type AppointmentParty struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar *File  `json:"avatar,omitempty"`
}

// AppointmentDetail is an appointment with its provider and booking user attached.
type AppointmentDetail struct {
	Appointment
	Provider AppointmentParty `json:"provider"`
	User     AppointmentParty `json:"user"`
}
