package adf

import (
	"strings"
	"testing"
	"time"
)

func sampleLead() *LeadData {
	price := 12995.0
	mileage := 45000
	down := 1500.0
	return &LeadData{
		LeadID: 42,
		Customer: Customer{
			FirstName: "Jane",
			LastName:  "O'Brien",
			Email:     "jane@example.com",
			Phone:     "519-555-0134",
		},
		Vehicle: VehicleOfInterest{
			VIN:         "2HGFB2F5XFH509999",
			Year:        2015,
			Make:        "Honda",
			Model:       "Civic",
			StockNumber: "P4821",
			Price:       &price,
			Mileage:     &mileage,
		},
		Dealer:   "Car Choice of Windsor",
		Comments: "Interested in a test drive",
		PreQual: PreQualification{
			EmploymentStatus:       "full_time",
			DownPaymentAvailable:   &down,
			BankruptcyStatus:       "none",
			CreditScoreRange:       "600-650",
			PreferredContactMethod: "phone",
			PreferredContactTime:   "evening",
		},
	}
}

func TestFormat(t *testing.T) {
	xml := format(sampleLead(), time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	for _, want := range []string{
		`<?adf version="1.0"?>`,
		`<prospect status="new">`,
		`<id sequence="1" source="AutoLeadsDirectory">42</id>`,
		`<requestdate>2025-06-01T12:00:00Z</requestdate>`,
		`<vehicle interest="buy" status="used">`,
		`<vin>2HGFB2F5XFH509999</vin>`,
		`<stock>P4821</stock>`,
		`<odometer units="miles">45000</odometer>`,
		`<price type="asking">12995</price>`,
		`<name part="first">Jane</name>`,
		`<name part="last">O&apos;Brien</name>`,
		`<phone type="voice" time="nopreference">(519) 555-0134</phone>`,
		`<vendorname>Car Choice of Windsor</vendorname>`,
		`<name part="full">Internet Sales</name>`,
		`<provider>`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("document missing %s\n%s", want, xml)
		}
	}
}

func TestFormatCommentsBlock(t *testing.T) {
	xml := format(sampleLead(), time.Now())

	if !strings.Contains(xml, "--- Pre-Qualification Information ---") {
		t.Fatal("pre-qualification separator missing")
	}
	for _, want := range []string{
		"Employment Status: full time",
		"Down Payment Available: $1500",
		"Bankruptcy Status: none",
		"Credit Score Range: 600-650",
		"Preferred Contact Method: phone",
		"Preferred Contact Time: evening",
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("comments missing %q", want)
		}
	}
	if !strings.Contains(xml, "Interested in a test drive\n--- Pre-Qualification") {
		t.Error("free-text comment should precede the pre-qual block")
	}
}

func TestFormatEscapesComments(t *testing.T) {
	lead := sampleLead()
	lead.Comments = `<script>alert("x")</script> & 'quotes'`
	xml := format(lead, time.Now())

	if strings.Contains(xml, "<script>") {
		t.Fatal("markup in comments must not survive unescaped")
	}
	want := "&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt; &amp; &apos;quotes&apos;"
	if !strings.Contains(xml, want) {
		t.Errorf("escaped comment missing from document\n%s", xml)
	}
}

func TestFormatOmitsEmptyOptionals(t *testing.T) {
	lead := sampleLead()
	lead.Vehicle.StockNumber = ""
	lead.Vehicle.Price = nil
	lead.Vehicle.Mileage = nil
	xml := format(lead, time.Now())

	for _, absent := range []string{"<stock>", "<odometer", "<price"} {
		if strings.Contains(xml, absent) {
			t.Errorf("document should omit %s when unset", absent)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	cases := map[string]string{
		"519-555-0134":    "(519) 555-0134",
		"(519) 555 0134":  "(519) 555-0134",
		"5195550134":      "(519) 555-0134",
		"+1 519 555 0134": "+1 519 555 0134", // 11 digits, passthrough
		"ext 204":         "ext 204",
	}
	for in, want := range cases {
		if got := FormatPhone(in); got != want {
			t.Errorf("FormatPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseResponse(t *testing.T) {
	r := ParseResponse(`<adf><response><status>accepted</status><message>Lead received</message><leadid>CRM-991</leadid></response></adf>`)
	if r.Status != "accepted" || r.Message != "Lead received" || r.LeadID != "CRM-991" {
		t.Errorf("unexpected parse: %+v", r)
	}

	r = ParseResponse("not xml at all")
	if r.Status != "unknown" {
		t.Errorf("expected unknown status, got %s", r.Status)
	}
}
