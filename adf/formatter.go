// Package adf renders leads as ADF 1.0 XML documents for dealer CRMs and
// parses the ADF acknowledgements some CRMs send back.
//
// ADF's repeated <name part="..."> elements don't map onto encoding/xml
// struct tags, so the document is built as an escaped template.
package adf

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// LeadData carries everything the formatter needs. The vehicle snapshot is
// embedded so the rendered document stays stable even if inventory changes
// after the lead is taken.
type LeadData struct {
	LeadID   int64
	Customer Customer
	Vehicle  VehicleOfInterest
	Dealer   string
	PreQual  PreQualification
	Comments string
}

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type VehicleOfInterest struct {
	VIN         string
	Year        int
	Make        string
	Model       string
	StockNumber string
	Price       *float64
	Mileage     *int
}

type PreQualification struct {
	EmploymentStatus       string
	DownPaymentAvailable   *float64
	BankruptcyStatus       string
	CreditScoreRange       string
	PreferredContactMethod string
	PreferredContactTime   string
}

// Format renders the lead as an ADF document with the request date set to
// now (UTC, RFC 3339).
func Format(data *LeadData) string {
	return format(data, time.Now().UTC())
}

func format(data *LeadData, requestDate time.Time) string {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<?adf version="1.0"?>` + "\n")
	b.WriteString("<adf>\n")
	b.WriteString("  <prospect status=\"new\">\n")
	fmt.Fprintf(&b, "    <id sequence=\"1\" source=\"AutoLeadsDirectory\">%d</id>\n", data.LeadID)
	fmt.Fprintf(&b, "    <requestdate>%s</requestdate>\n", requestDate.Format(time.RFC3339))

	v := data.Vehicle
	b.WriteString("    <vehicle interest=\"buy\" status=\"used\">\n")
	fmt.Fprintf(&b, "      <vin>%s</vin>\n", escape(v.VIN))
	fmt.Fprintf(&b, "      <year>%d</year>\n", v.Year)
	fmt.Fprintf(&b, "      <make>%s</make>\n", escape(v.Make))
	fmt.Fprintf(&b, "      <model>%s</model>\n", escape(v.Model))
	if v.StockNumber != "" {
		fmt.Fprintf(&b, "      <stock>%s</stock>\n", escape(v.StockNumber))
	}
	if v.Mileage != nil {
		fmt.Fprintf(&b, "      <odometer units=\"miles\">%d</odometer>\n", *v.Mileage)
	}
	if v.Price != nil {
		fmt.Fprintf(&b, "      <price type=\"asking\">%s</price>\n", formatAmount(*v.Price))
	}
	b.WriteString("    </vehicle>\n")

	c := data.Customer
	b.WriteString("    <customer>\n")
	b.WriteString("      <contact>\n")
	fmt.Fprintf(&b, "        <name part=\"first\">%s</name>\n", escape(c.FirstName))
	fmt.Fprintf(&b, "        <name part=\"last\">%s</name>\n", escape(c.LastName))
	fmt.Fprintf(&b, "        <email>%s</email>\n", escape(c.Email))
	fmt.Fprintf(&b, "        <phone type=\"voice\" time=\"nopreference\">%s</phone>\n", escape(FormatPhone(c.Phone)))
	b.WriteString("      </contact>\n")
	fmt.Fprintf(&b, "      <comments>%s</comments>\n", escape(buildComments(data)))
	b.WriteString("    </customer>\n")

	b.WriteString("    <vendor>\n")
	fmt.Fprintf(&b, "      <vendorname>%s</vendorname>\n", escape(data.Dealer))
	b.WriteString("      <contact>\n")
	b.WriteString("        <name part=\"full\">Internet Sales</name>\n")
	b.WriteString("      </contact>\n")
	b.WriteString("    </vendor>\n")

	b.WriteString("    <provider>\n")
	b.WriteString("      <name>Auto Leads Directory</name>\n")
	b.WriteString("      <service>Lead Generation</service>\n")
	b.WriteString("      <url>https://autoleadsdirectory.com</url>\n")
	b.WriteString("    </provider>\n")

	b.WriteString("  </prospect>\n")
	b.WriteString("</adf>")

	return b.String()
}

func buildComments(data *LeadData) string {
	var parts []string
	if data.Comments != "" {
		parts = append(parts, data.Comments)
	}

	parts = append(parts, "--- Pre-Qualification Information ---")

	q := data.PreQual
	if q.EmploymentStatus != "" {
		parts = append(parts, "Employment Status: "+strings.ReplaceAll(q.EmploymentStatus, "_", " "))
	}
	if q.DownPaymentAvailable != nil {
		parts = append(parts, "Down Payment Available: $"+formatAmount(*q.DownPaymentAvailable))
	}
	if q.BankruptcyStatus != "" {
		parts = append(parts, "Bankruptcy Status: "+q.BankruptcyStatus)
	}
	if q.CreditScoreRange != "" {
		parts = append(parts, "Credit Score Range: "+q.CreditScoreRange)
	}
	if q.PreferredContactMethod != "" {
		parts = append(parts, "Preferred Contact Method: "+q.PreferredContactMethod)
	}
	if q.PreferredContactTime != "" {
		parts = append(parts, "Preferred Contact Time: "+q.PreferredContactTime)
	}

	return strings.Join(parts, "\n")
}

// FormatPhone normalizes a 10-digit North American number to
// (XXX) XXX-XXXX. Anything else passes through untouched.
func FormatPhone(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) == 10 {
		return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
	}
	return phone
}

var nonDigitRe = regexp.MustCompile(`\D`)

func formatAmount(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escape(s string) string {
	return escaper.Replace(s)
}
