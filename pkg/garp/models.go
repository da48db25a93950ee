package garp

import (
	"strings"
)

// Carrier identifies a parcel carrier referenced by an export file.
type Carrier string

const (
	CarrierDHL      Carrier = "DHL"
	CarrierPostNord Carrier = "PN"
	CarrierBring    Carrier = "BRING"
)

// KnownCarriers returns every carrier token the parser accepts.
func KnownCarriers() []Carrier {
	return []Carrier{CarrierDHL, CarrierPostNord, CarrierBring}
}

// ParseCarrier resolves a service-code carrier token. Tokens are
// case-insensitive and may carry surrounding whitespace.
func ParseCarrier(token string) (Carrier, bool) {
	switch c := Carrier(strings.ToUpper(strings.TrimSpace(token))); c {
	case CarrierDHL, CarrierPostNord, CarrierBring:
		return c, true
	}
	return "", false
}

// Receiver holds the delivery address and contact details for a shipment.
type Receiver struct {
	RcvID    string
	Name     string
	Address1 string
	Address2 string
	Zipcode  string
	City     string
	Country  string
	Phone    string
	Email    string
	Contact  string
	SMS      string
}

// Container describes one physical parcel group in a shipment.
type Container struct {
	Type        string
	Measure     string
	Copies      int
	PackageCode string
	Contents    string
	Weight      float64
	Volume      float64
	Length      float64
	Width       float64
	Height      float64
}

// BookingInfo is an optional pickup request attached to a service.
type BookingInfo struct {
	PickupBooking bool
	PickupDate    string
}

// Notification is an opt-in notification code with an optional
// free-text message.
type Notification struct {
	OptID   string
	Message string
}

// ServiceInfo is the parsed form of a service code
// ("CARRIER:PRODUCT[:ADDON]", e.g. "DHL:104:AVIS" or "PN:19").
type ServiceInfo struct {
	Carrier      Carrier
	ProductCode  string
	Addon        string
	RawServiceID string
	Booking      *BookingInfo
}

// Shipment is one booking order parsed from an export file. Shipments
// are immutable after parsing; booking results live in carrier
// responses, never here.
type Shipment struct {
	OrderNo             string
	SenderName          string
	Reference           string
	TermCode            string
	DeliveryInstruction string
	Service             *ServiceInfo
	Receiver            *Receiver
	Containers          []Container
	Notifications       []Notification
}

// HasNotification reports whether the shipment carries the given opt-in
// code. Comparison is case-insensitive.
func (s *Shipment) HasNotification(optID string) bool {
	for _, n := range s.Notifications {
		if strings.EqualFold(n.OptID, optID) {
			return true
		}
	}
	return false
}

// NotificationMessage returns the message text for the given opt-in
// code, or "" when the shipment does not carry it.
func (s *Shipment) NotificationMessage(optID string) string {
	for _, n := range s.Notifications {
		if strings.EqualFold(n.OptID, optID) {
			return n.Message
		}
	}
	return ""
}
