package engine

import (
	"fmt"
	"strings"

	"encorecrm/models"
)

// FollowUpContent is the JSON object the follow-up prompt asks the
// model to produce. Field names must match the prompt exactly.
type FollowUpContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SMS     string `json:"sms"`
}

// QuoteContent is the JSON object the quote prompt asks for.
type QuoteContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// BuildFollowUpPrompt asks for a personalized rewrite of the current
// sequence step. The rendered template rides along as the draft so
// the model keeps the pricing and deadline facts intact.
func BuildFollowUpPrompt(lead *models.Lead, sequenceNumber int, draft RenderedContent) string {
	var b strings.Builder
	b.WriteString("You write short, warm follow-up messages for a performing-arts licensing company.\n")
	fmt.Fprintf(&b, "This is follow-up number %d of 4 to a school drama director who has not replied to a quote.\n\n", sequenceNumber)
	b.WriteString("Lead:\n")
	fmt.Fprintf(&b, "- Director: %s\n", orDefault(lead.DirectorName, "unknown"))
	fmt.Fprintf(&b, "- School: %s\n", orDefault(lead.School, "unknown"))
	fmt.Fprintf(&b, "- Program: %s\n", orDefault(lead.Program, "unknown"))
	fmt.Fprintf(&b, "- Performers: %s\n", countOrDefault(lead.PerformerCount, "unknown"))
	fmt.Fprintf(&b, "- Season: %s\n", orDefault(lead.Season, "unknown"))
	fmt.Fprintf(&b, "- Quoted rate: %s (standard %s, savings %s)\n", money(lead.DiscountRate), money(lead.StandardRate), money(lead.Savings))
	fmt.Fprintf(&b, "- Deadline: %s\n\n", dateOrDefault(lead.Deadline, "none"))
	b.WriteString("Draft to improve:\n")
	fmt.Fprintf(&b, "Subject: %s\nBody: %s\nSMS: %s\n\n", draft.Subject, draft.Body, draft.SMS)
	b.WriteString("Keep every price and date exactly as given. Do not invent facts.\n")
	b.WriteString(`Respond with only a JSON object, no markdown, with exactly these fields: {"subject": string, "body": string, "sms": string}`)
	return b.String()
}

// BuildQuotePrompt produces the initial quote email for a lead.
func BuildQuotePrompt(lead *models.Lead) string {
	var b strings.Builder
	b.WriteString("You write quote emails for a performing-arts licensing company selling show programs to schools.\n\n")
	b.WriteString("Lead:\n")
	fmt.Fprintf(&b, "- Director: %s\n", orDefault(lead.DirectorName, "unknown"))
	fmt.Fprintf(&b, "- School: %s\n", orDefault(lead.School, "unknown"))
	fmt.Fprintf(&b, "- Program: %s\n", orDefault(lead.Program, "unknown"))
	fmt.Fprintf(&b, "- Performers: %s\n", countOrDefault(lead.PerformerCount, "unknown"))
	fmt.Fprintf(&b, "- Season: %s\n", orDefault(lead.Season, "unknown"))
	fmt.Fprintf(&b, "- Standard rate: %s\n", money(lead.StandardRate))
	fmt.Fprintf(&b, "- Discounted rate: %s\n", money(lead.DiscountRate))
	fmt.Fprintf(&b, "- Savings: %s\n\n", money(lead.Savings))
	b.WriteString("Write a friendly, concise quote email presenting the discounted rate and the savings.\n")
	b.WriteString("Keep every price exactly as given. Do not invent facts.\n")
	b.WriteString(`Respond with only a JSON object, no markdown, with exactly these fields: {"subject": string, "body": string}`)
	return b.String()
}
