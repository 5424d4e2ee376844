package businessflow

import (
	"regexp"
	"strconv"

	"github.com/clearlens/campaign-engine/models"
)

// tokenPattern matches placeholder tokens of the form {{firstName}}
var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// RenderMessageBody substitutes customer attributes into a message body.
// Unknown tokens render as empty strings rather than leaking braces into
// customer-facing text.
func RenderMessageBody(body string, customer *models.Customer) string {
	return tokenPattern.ReplaceAllStringFunc(body, func(match string) string {
		token := tokenPattern.FindStringSubmatch(match)[1]
		return tokenValue(token, customer)
	})
}

func tokenValue(token string, customer *models.Customer) string {
	switch token {
	case "firstName":
		return customer.FirstName
	case "lastName":
		return customer.LastName
	case "fullName":
		return customer.GetFullName()
	case "email":
		if customer.Email != nil {
			return *customer.Email
		}
	case "phone":
		if customer.Phone != nil {
			return *customer.Phone
		}
	case "city":
		if customer.City != nil {
			return *customer.City
		}
	case "birthYear":
		if customer.BirthYear != nil {
			return strconv.Itoa(*customer.BirthYear)
		}
	}
	return ""
}
