package notifybidder

import (
	"fmt"
	"regexp"
	"strings"

	"tender-workers/internal/models"
)

var templates = map[string]models.NotificationTemplate{
	TypeBidAwarded: {
		Type:    TypeBidAwarded,
		Subject: "Your bid for {{tenderTitle}} was accepted",
		Body: "Hello {{contractorName}}, congratulations: your bid {{bidId}} for {{tenderTitle}} " +
			"has been awarded. The project manager will contact you about next steps.",
	},
	TypeBidRejected: {
		Type:    TypeBidRejected,
		Subject: "Update on your bid for {{tenderTitle}}",
		Body: "Hello {{contractorName}}, thank you for bidding on {{tenderTitle}}. " +
			"Your bid {{bidId}} was not selected this time.",
	},
	TypeBidShortlisted: {
		Type:    TypeBidShortlisted,
		Subject: "Your bid for {{tenderTitle}} was shortlisted",
		Body: "Hello {{contractorName}}, your bid {{bidId}} for {{tenderTitle}} is on the shortlist. " +
			"The evaluation team may reach out with questions.",
	},
}

var placeholder = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// renderTemplate substitutes {{key}} placeholders from data. Placeholders
// without a value render empty.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	pairs := make([]string, 0, 2*len(data))
	for k, v := range data {
		value := ""
		switch val := v.(type) {
		case string:
			value = val
		case nil:
		default:
			value = fmt.Sprintf("%v", val)
		}
		pairs = append(pairs, "{{"+k+"}}", value)
	}
	return placeholder.ReplaceAllString(strings.NewReplacer(pairs...).Replace(tmpl), "")
}
