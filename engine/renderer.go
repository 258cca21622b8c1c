package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"encorecrm/models"
)

// RenderedContent is the per-channel message content for one lead.
type RenderedContent struct {
	Subject string
	Body    string
	SMS     string
}

// RenderFollowUp renders every channel of a template for one lead.
func RenderFollowUp(tpl *models.FollowUpTemplate, lead *models.Lead) RenderedContent {
	return RenderedContent{
		Subject: RenderTemplate(tpl.EmailSubject, lead),
		Body:    RenderTemplate(tpl.EmailBody, lead),
		SMS:     RenderTemplate(tpl.SMSBody, lead),
	}
}

// RenderTemplate substitutes the placeholder vocabulary into text.
// Pure: no store or network access, identical inputs always produce
// identical output. Every placeholder has a default for empty lead
// fields so templates never render with holes.
//
//	{{director_name}}   full name            "there"
//	{{first_name}}      first name token     "there"
//	{{school}}                               "your school"
//	{{program}}                              "our program"
//	{{performer_count}}                      "your cast"
//	{{season}}                               "this season"
//	{{standard_rate}}   "$1234.50"           "$0"
//	{{discount_rate}}   "$1234.50"           "$0"
//	{{savings}}         "$1234.50"           "$0"
//	{{invoice_number}}                       "your invoice"
//	{{payment_link}}                         "our payment page"
//	{{deadline}}        "January 2, 2006"    "soon"
//	{{status}}                               current status
//	{{submission_date}} "January 2, 2006"    "recently"
func RenderTemplate(text string, lead *models.Lead) string {
	replacer := strings.NewReplacer(
		"{{director_name}}", orDefault(lead.DirectorName, "there"),
		"{{first_name}}", orDefault(firstName(lead.DirectorName), "there"),
		"{{school}}", orDefault(lead.School, "your school"),
		"{{program}}", orDefault(lead.Program, "our program"),
		"{{performer_count}}", countOrDefault(lead.PerformerCount, "your cast"),
		"{{season}}", orDefault(lead.Season, "this season"),
		"{{standard_rate}}", money(lead.StandardRate),
		"{{discount_rate}}", money(lead.DiscountRate),
		"{{savings}}", money(lead.Savings),
		"{{invoice_number}}", orDefault(lead.InvoiceNumber, "your invoice"),
		"{{payment_link}}", orDefault(lead.PaymentLink, "our payment page"),
		"{{deadline}}", dateOrDefault(lead.Deadline, "soon"),
		"{{status}}", lead.Status,
		"{{submission_date}}", dateOrDefault(lead.SubmissionDate, "recently"),
	)
	return replacer.Replace(text)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func countOrDefault(n int, fallback string) string {
	if n <= 0 {
		return fallback
	}
	return strconv.Itoa(n)
}

func money(v float64) string {
	if v <= 0 {
		return "$0"
	}
	return fmt.Sprintf("$%.2f", v)
}

func dateOrDefault(t *time.Time, fallback string) string {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.Format("January 2, 2006")
}
