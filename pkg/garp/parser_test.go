package garp_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
)

const sampleExport = `<?xml version="1.0" encoding="UTF-8"?>
<data>
 <receiver rcvid="7631">
  <val n="name">Testbutiken AB</val>
  <val n="address1">Storgatan 10</val>
  <val n="zipcode">11122</val>
  <val n="city">STOCKHOLM</val>
  <val n="country">SE</val>
  <val n="phone">0812345678</val>
  <val n="email">anna@testbutiken.se</val>
 </receiver>
 <shipment orderno="107739-132888">
  <val n="from">Ernst P AB</val>
  <val n="reference">107739-132888</val>
  <val n="termcode">S</val>
  <service srvid="DHL:102">
   <booking>
    <val n="pickupbooking">YES</val>
    <val n="pickupdate">2026-02-19</val>
   </booking>
  </service>
  <container type="parcel">
   <val n="copies">1</val>
   <val n="weight">5.5</val>
   <val n="packagecode">PKT</val>
   <val n="contents">material</val>
  </container>
  <ufonline>
   <option optid="enot">
    <val n="message">Order 107739 is on its way</val>
   </option>
  </ufonline>
 </shipment>
</data>`

func mustParse(t *testing.T, doc string) []*garp.Shipment {
	t.Helper()
	shipments, err := garp.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return shipments
}

func TestParse_CompleteDocument(t *testing.T) {
	shipments := mustParse(t, sampleExport)
	require.Len(t, shipments, 1)
	s := shipments[0]

	assert.Equal(t, "107739-132888", s.OrderNo)
	assert.Equal(t, "Ernst P AB", s.SenderName)
	assert.Equal(t, "107739-132888", s.Reference)
	assert.Equal(t, "S", s.TermCode)

	require.NotNil(t, s.Receiver)
	assert.Equal(t, "7631", s.Receiver.RcvID)
	assert.Equal(t, "Testbutiken AB", s.Receiver.Name)
	assert.Equal(t, "Storgatan 10", s.Receiver.Address1)
	assert.Equal(t, "11122", s.Receiver.Zipcode)
	assert.Equal(t, "STOCKHOLM", s.Receiver.City)
	assert.Equal(t, "SE", s.Receiver.Country)
	assert.Equal(t, "anna@testbutiken.se", s.Receiver.Email)

	require.NotNil(t, s.Service)
	assert.Equal(t, garp.CarrierDHL, s.Service.Carrier)
	assert.Equal(t, "102", s.Service.ProductCode)
	assert.Empty(t, s.Service.Addon)
	assert.Equal(t, "DHL:102", s.Service.RawServiceID)

	require.NotNil(t, s.Service.Booking)
	assert.True(t, s.Service.Booking.PickupBooking)
	assert.Equal(t, "2026-02-19", s.Service.Booking.PickupDate)

	require.Len(t, s.Containers, 1)
	c := s.Containers[0]
	assert.Equal(t, "parcel", c.Type)
	assert.Equal(t, 1, c.Copies)
	assert.Equal(t, 5.5, c.Weight)
	assert.Equal(t, "PKT", c.PackageCode)
	assert.Equal(t, "material", c.Contents)

	require.Len(t, s.Notifications, 1)
	assert.Equal(t, "enot", s.Notifications[0].OptID)
	assert.Contains(t, s.Notifications[0].Message, "107739")
	assert.True(t, s.HasNotification("ENOT"))
	assert.Contains(t, s.NotificationMessage("enot"), "107739")
}

func TestParse_ServiceCodeWithAddon(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="DHL:104:AVIS"></service>
	</shipment></data>`)
	s := shipments[0].Service
	assert.Equal(t, garp.CarrierDHL, s.Carrier)
	assert.Equal(t, "104", s.ProductCode)
	assert.Equal(t, "AVIS", s.Addon)
	assert.Equal(t, "DHL:104:AVIS", s.RawServiceID)
}

func TestParse_PostNordServiceCode(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="PN:19"></service>
	</shipment></data>`)
	s := shipments[0].Service
	assert.Equal(t, garp.CarrierPostNord, s.Carrier)
	assert.Equal(t, "19", s.ProductCode)
	assert.Empty(t, s.Addon)
}

func TestParse_ServiceCodePadding(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="  DHL:104   "></service>
	</shipment></data>`)
	s := shipments[0].Service
	assert.Equal(t, garp.CarrierDHL, s.Carrier)
	assert.Equal(t, "104", s.ProductCode)
	assert.Equal(t, "DHL:104", s.RawServiceID)
}

func TestParse_InvalidServiceCode(t *testing.T) {
	_, err := garp.Parse(strings.NewReader(`<data><shipment orderno="A">
		<service srvid="INVALID"></service>
	</shipment></data>`))
	require.Error(t, err)

	var formatErr *garp.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "invalid service code")
}

func TestParse_UnknownCarrier(t *testing.T) {
	_, err := garp.Parse(strings.NewReader(`<data><shipment orderno="A">
		<service srvid="UPS:100"></service>
	</shipment></data>`))
	require.Error(t, err)

	var formatErr *garp.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "unknown carrier")
	assert.Contains(t, formatErr.Reason, "UPS")
}

func TestParse_MissingService(t *testing.T) {
	_, err := garp.Parse(strings.NewReader(`<data><shipment orderno="ORD-9"></shipment></data>`))
	require.Error(t, err)

	var formatErr *garp.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "ORD-9")
	assert.Contains(t, formatErr.Reason, "service")
}

func TestParse_WhitespaceStripping(t *testing.T) {
	shipments := mustParse(t, `<data>
	 <receiver rcvid="123       ">
	  <val n="name">  Foretag AB         </val>
	  <val n="zipcode">  11122   </val>
	  <val n="city">  Stockholm     </val>
	  <val n="country">SE</val>
	 </receiver>
	 <shipment orderno="  ORD-003  ">
	  <val n="reference">  REF-003   </val>
	  <service srvid="DHL:103"></service>
	 </shipment>
	</data>`)

	s := shipments[0]
	assert.Equal(t, "ORD-003", s.OrderNo)
	assert.Equal(t, "REF-003", s.Reference)
	assert.Equal(t, "123", s.Receiver.RcvID)
	assert.Equal(t, "Foretag AB", s.Receiver.Name)
	assert.Equal(t, "11122", s.Receiver.Zipcode)
	assert.Equal(t, "Stockholm", s.Receiver.City)
}

func TestParse_SharedReceiverCopied(t *testing.T) {
	shipments := mustParse(t, `<data>
	 <receiver rcvid="1"><val n="name">Kund AB</val><val n="country">SE</val></receiver>
	 <shipment orderno="ORD-A"><service srvid="DHL:104"></service></shipment>
	 <shipment orderno="ORD-B"><service srvid="PN:17"></service></shipment>
	</data>`)
	require.Len(t, shipments, 2)

	require.NotNil(t, shipments[0].Receiver)
	require.NotNil(t, shipments[1].Receiver)
	assert.Equal(t, *shipments[0].Receiver, *shipments[1].Receiver)
	assert.NotSame(t, shipments[0].Receiver, shipments[1].Receiver)

	shipments[0].Receiver.Name = "changed"
	assert.Equal(t, "Kund AB", shipments[1].Receiver.Name)
}

func TestParse_ShipmentReceiverOverride(t *testing.T) {
	shipments := mustParse(t, `<data>
	 <receiver rcvid="1"><val n="name">Shared</val></receiver>
	 <shipment orderno="ORD-A">
	  <receiver rcvid="2"><val n="name">Own</val></receiver>
	  <service srvid="DHL:104"></service>
	 </shipment>
	 <shipment orderno="ORD-B"><service srvid="DHL:104"></service></shipment>
	</data>`)

	assert.Equal(t, "Own", shipments[0].Receiver.Name)
	assert.Equal(t, "2", shipments[0].Receiver.RcvID)
	assert.Equal(t, "Shared", shipments[1].Receiver.Name)
}

func TestParse_MultipleShipments(t *testing.T) {
	shipments := mustParse(t, `<data>
	 <receiver rcvid="1"><val n="name">Kund</val></receiver>
	 <shipment orderno="ORD-A"><service srvid="DHL:104"></service></shipment>
	 <shipment orderno="ORD-B"><service srvid="PN:17"></service></shipment>
	</data>`)
	require.Len(t, shipments, 2)
	assert.Equal(t, "ORD-A", shipments[0].OrderNo)
	assert.Equal(t, garp.CarrierDHL, shipments[0].Service.Carrier)
	assert.Equal(t, "ORD-B", shipments[1].OrderNo)
	assert.Equal(t, garp.CarrierPostNord, shipments[1].Service.Carrier)
}

func TestParse_NoNotifications(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="DHL:104"></service>
	</shipment></data>`)
	assert.Empty(t, shipments[0].Notifications)
	assert.False(t, shipments[0].HasNotification("enot"))
}

func TestParse_ContainerDefaults(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="DHL:104"></service>
		<container><val n="weight">2.5</val></container>
	</shipment></data>`)

	c := shipments[0].Containers[0]
	assert.Equal(t, "parcel", c.Type)
	assert.Equal(t, 1, c.Copies)
	assert.Equal(t, "PC", c.PackageCode)
	assert.Equal(t, 2.5, c.Weight)
	assert.Zero(t, c.Volume)
}

func TestParse_EmptyPackageCode(t *testing.T) {
	// A present-but-blank value is an explicit empty code, not the
	// "PC" default for an absent element.
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="DHL:210"></service>
		<container><val n="packagecode">   </val></container>
	</shipment></data>`)
	assert.Empty(t, shipments[0].Containers[0].PackageCode)
}

func TestParse_ContainerDimensions(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="DHL:104"></service>
		<container measure="cm">
		 <val n="weight">12</val>
		 <val n="length">120</val>
		 <val n="width">80</val>
		 <val n="height">95.5</val>
		</container>
	</shipment></data>`)

	c := shipments[0].Containers[0]
	assert.Equal(t, "cm", c.Measure)
	assert.Equal(t, 120.0, c.Length)
	assert.Equal(t, 80.0, c.Width)
	assert.Equal(t, 95.5, c.Height)
}

func TestParse_TolerantNumerics(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="DHL:104"></service>
		<container><val n="copies">2.0</val><val n="weight">5.00</val></container>
	</shipment></data>`)
	c := shipments[0].Containers[0]
	assert.Equal(t, 2, c.Copies)
	assert.Equal(t, 5.0, c.Weight)
}

func TestParse_InvalidNumeric(t *testing.T) {
	_, err := garp.Parse(strings.NewReader(`<data><shipment orderno="ORD-X">
		<service srvid="DHL:104"></service>
		<container><val n="weight">heavy</val></container>
	</shipment></data>`))
	require.Error(t, err)

	var formatErr *garp.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "weight")
	assert.Contains(t, formatErr.Reason, "heavy")
}

func TestParse_BookingNotRequested(t *testing.T) {
	shipments := mustParse(t, `<data><shipment orderno="A">
		<service srvid="DHL:104">
		 <booking><val n="pickupbooking">NO</val></booking>
		</service>
	</shipment></data>`)
	require.NotNil(t, shipments[0].Service.Booking)
	assert.False(t, shipments[0].Service.Booking.PickupBooking)

	shipments = mustParse(t, `<data><shipment orderno="B">
		<service srvid="DHL:104"></service>
	</shipment></data>`)
	assert.Nil(t, shipments[0].Service.Booking)
}

func TestParse_Latin1Charset(t *testing.T) {
	// 0xF6 is "ö" in ISO-8859-1; the decoder must honor the declared
	// charset instead of rejecting non-UTF-8 bytes.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<data><receiver rcvid=\"1\"><val n=\"city\">G\xf6teborg</val></receiver>" +
		"<shipment orderno=\"A\"><service srvid=\"PN:19\"></service></shipment></data>"

	shipments, err := garp.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Göteborg", shipments[0].Receiver.City)
}

func TestParse_MalformedXML(t *testing.T) {
	_, err := garp.Parse(strings.NewReader(`<data><shipment orderno="A"`))
	require.Error(t, err)

	var formatErr *garp.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.NotNil(t, errors.Unwrap(formatErr))
}

func TestParse_EmptyDocument(t *testing.T) {
	shipments := mustParse(t, `<data></data>`)
	assert.Empty(t, shipments)
}

func TestParseFile_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o644))

	shipments, err := garp.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.Equal(t, "107739-132888", shipments[0].OrderNo)
}

func TestParseFile_MissingFile(t *testing.T) {
	_, err := garp.ParseFile(filepath.Join(t.TempDir(), "absent.xml"))
	require.Error(t, err)
}

func TestParseCarrier(t *testing.T) {
	c, ok := garp.ParseCarrier("dhl")
	require.True(t, ok)
	assert.Equal(t, garp.CarrierDHL, c)

	c, ok = garp.ParseCarrier("  pn ")
	require.True(t, ok)
	assert.Equal(t, garp.CarrierPostNord, c)

	_, ok = garp.ParseCarrier("ups")
	assert.False(t, ok)
}
