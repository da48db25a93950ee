// Package garp parses shipment export files produced by the GARP
// warehouse system.
//
// Exports are Unifaun OnlineConnect style XML documents, usually
// declared ISO-8859-1. Field values arrive as <val n="key">text</val>
// children padded to fixed widths, so every extracted value is
// whitespace-trimmed. Service codes follow the form
// CARRIER:PRODUCT[:ADDON], for example "DHL:104:AVIS" or "PN:19".
package garp

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

type xmlVal struct {
	N    string `xml:"n,attr"`
	Text string `xml:",chardata"`
}

type xmlReceiver struct {
	RcvID string   `xml:"rcvid,attr"`
	Vals  []xmlVal `xml:"val"`
}

type xmlBooking struct {
	Vals []xmlVal `xml:"val"`
}

type xmlService struct {
	SrvID   string      `xml:"srvid,attr"`
	Booking *xmlBooking `xml:"booking"`
}

type xmlContainer struct {
	Type    string   `xml:"type,attr"`
	Measure string   `xml:"measure,attr"`
	Vals    []xmlVal `xml:"val"`
}

type xmlOption struct {
	OptID string   `xml:"optid,attr"`
	Vals  []xmlVal `xml:"val"`
}

type xmlUfonline struct {
	Options []xmlOption `xml:"option"`
}

type xmlShipment struct {
	OrderNo    string         `xml:"orderno,attr"`
	Receiver   *xmlReceiver   `xml:"receiver"`
	Service    *xmlService    `xml:"service"`
	Containers []xmlContainer `xml:"container"`
	Ufonline   *xmlUfonline   `xml:"ufonline"`
	Vals       []xmlVal       `xml:"val"`
}

type xmlData struct {
	XMLName   xml.Name      `xml:"data"`
	Receiver  *xmlReceiver  `xml:"receiver"`
	Shipments []xmlShipment `xml:"shipment"`
}

// ParseFile reads and parses one export file. A single file may carry
// several shipments.
func ParseFile(path string) ([]*Shipment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	shipments, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return shipments, nil
}

// Parse decodes an export document into its shipments. A document-level
// receiver applies to every shipment without its own; each parsed
// shipment gets its own copy.
func Parse(r io.Reader) ([]*Shipment, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var doc xmlData
	if err := dec.Decode(&doc); err != nil {
		return nil, &FormatError{Reason: "malformed XML", Cause: err}
	}

	var shared *Receiver
	if doc.Receiver != nil {
		shared = parseReceiver(doc.Receiver)
	}

	shipments := make([]*Shipment, 0, len(doc.Shipments))
	for i := range doc.Shipments {
		sh, err := parseShipment(&doc.Shipments[i], shared)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, sh)
	}
	return shipments, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "us-ascii":
		return input, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %q", charset)
}

func parseReceiver(elem *xmlReceiver) *Receiver {
	vals := valsMap(elem.Vals)
	return &Receiver{
		RcvID:    strings.TrimSpace(elem.RcvID),
		Name:     vals["name"],
		Address1: vals["address1"],
		Address2: vals["address2"],
		Zipcode:  vals["zipcode"],
		City:     vals["city"],
		Country:  vals["country"],
		Phone:    vals["phone"],
		Email:    vals["email"],
		Contact:  vals["contact"],
		SMS:      vals["sms"],
	}
}

func parseShipment(elem *xmlShipment, shared *Receiver) (*Shipment, error) {
	vals := valsMap(elem.Vals)
	orderNo := strings.TrimSpace(elem.OrderNo)

	service, err := parseService(elem.Service, orderNo)
	if err != nil {
		return nil, err
	}

	var receiver *Receiver
	switch {
	case elem.Receiver != nil:
		receiver = parseReceiver(elem.Receiver)
	case shared != nil:
		// Each shipment owns its copy of the document-level receiver.
		recv := *shared
		receiver = &recv
	}

	containers := make([]Container, 0, len(elem.Containers))
	for i := range elem.Containers {
		c, err := parseContainer(&elem.Containers[i], orderNo)
		if err != nil {
			return nil, err
		}
		containers = append(containers, c)
	}

	return &Shipment{
		OrderNo:             orderNo,
		SenderName:          vals["from"],
		Reference:           vals["reference"],
		TermCode:            vals["termcode"],
		DeliveryInstruction: vals["deliveryinstruction"],
		Service:             service,
		Receiver:            receiver,
		Containers:          containers,
		Notifications:       parseNotifications(elem.Ufonline),
	}, nil
}

func parseService(elem *xmlService, orderNo string) (*ServiceInfo, error) {
	if elem == nil {
		return nil, formatErrorf("shipment %q has no service element", orderNo)
	}

	raw := strings.TrimSpace(elem.SrvID)
	carrier, product, addon, err := parseServiceCode(raw)
	if err != nil {
		return nil, err
	}

	var booking *BookingInfo
	if elem.Booking != nil {
		bvals := valsMap(elem.Booking.Vals)
		booking = &BookingInfo{
			PickupBooking: strings.EqualFold(bvals["pickupbooking"], "YES"),
			PickupDate:    bvals["pickupdate"],
		}
	}

	return &ServiceInfo{
		Carrier:      carrier,
		ProductCode:  product,
		Addon:        addon,
		RawServiceID: raw,
		Booking:      booking,
	}, nil
}

func parseServiceCode(raw string) (Carrier, string, string, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return "", "", "", formatErrorf(
			"invalid service code %q: expected CARRIER:PRODUCT[:ADDON]", raw)
	}

	carrier, ok := ParseCarrier(parts[0])
	if !ok {
		return "", "", "", formatErrorf(
			"unknown carrier %q in service code %q", strings.TrimSpace(parts[0]), raw)
	}

	addon := ""
	if len(parts) > 2 {
		addon = strings.TrimSpace(parts[2])
	}
	return carrier, strings.TrimSpace(parts[1]), addon, nil
}

func parseContainer(elem *xmlContainer, orderNo string) (Container, error) {
	vals := valsMap(elem.Vals)

	copies, err := intField(vals, "copies", 1, orderNo)
	if err != nil {
		return Container{}, err
	}
	weight, err := floatField(vals, "weight", 0, orderNo)
	if err != nil {
		return Container{}, err
	}
	volume, err := floatField(vals, "volume", 0, orderNo)
	if err != nil {
		return Container{}, err
	}
	length, err := floatField(vals, "length", 0, orderNo)
	if err != nil {
		return Container{}, err
	}
	width, err := floatField(vals, "width", 0, orderNo)
	if err != nil {
		return Container{}, err
	}
	height, err := floatField(vals, "height", 0, orderNo)
	if err != nil {
		return Container{}, err
	}

	ctype := elem.Type
	if ctype == "" {
		ctype = "parcel"
	}
	packageCode, ok := vals["packagecode"]
	if !ok {
		packageCode = "PC"
	}

	return Container{
		Type:        ctype,
		Measure:     elem.Measure,
		Copies:      copies,
		PackageCode: packageCode,
		Contents:    vals["contents"],
		Weight:      weight,
		Volume:      volume,
		Length:      length,
		Width:       width,
		Height:      height,
	}, nil
}

func parseNotifications(elem *xmlUfonline) []Notification {
	if elem == nil {
		return nil
	}
	notifications := make([]Notification, 0, len(elem.Options))
	for _, opt := range elem.Options {
		vals := valsMap(opt.Vals)
		notifications = append(notifications, Notification{
			OptID:   strings.TrimSpace(opt.OptID),
			Message: vals["message"],
		})
	}
	return notifications
}

// floatField reads a numeric value. Absent keys fall back to the
// default; present values must parse, including empty ones.
func floatField(vals map[string]string, key string, def float64, orderNo string) (float64, error) {
	raw, ok := vals[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, formatErrorf("shipment %q: invalid numeric value %q for %s", orderNo, raw, key)
	}
	return f, nil
}

// intField accepts float syntax for integer fields ("1" and "1.0" are
// both one copy); the exporting system emits both.
func intField(vals map[string]string, key string, def int, orderNo string) (int, error) {
	f, err := floatField(vals, key, float64(def), orderNo)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// valsMap flattens <val n="key">text</val> children. The exporter pads
// values to fixed widths, so everything is trimmed.
func valsMap(vals []xmlVal) map[string]string {
	m := make(map[string]string, len(vals))
	for _, v := range vals {
		m[v.N] = strings.TrimSpace(v.Text)
	}
	return m
}
