package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/printful"
)

// Countries whose provider orders are rejected without a state code.
var stateRequiredCountries = map[string]struct{}{
	"US": {},
	"CA": {},
	"AU": {},
}

// NormalizeRecipient trims and validates a shipping recipient, defaulting the country to US.
func NormalizeRecipient(r Recipient) (Recipient, error) {
	out := Recipient{
		Name:        strings.TrimSpace(r.Name),
		Address1:    strings.TrimSpace(r.Address1),
		Address2:    strings.TrimSpace(r.Address2),
		City:        strings.TrimSpace(r.City),
		StateCode:   strings.ToUpper(strings.TrimSpace(r.StateCode)),
		Zip:         strings.TrimSpace(r.Zip),
		CountryCode: strings.ToUpper(strings.TrimSpace(r.CountryCode)),
		Email:       strings.TrimSpace(r.Email),
		Phone:       strings.TrimSpace(r.Phone),
	}
	if out.CountryCode == "" {
		out.CountryCode = domain.DefaultCountryCode
	}

	var problems []string
	if out.Name == "" {
		problems = append(problems, "name is required")
	}
	if out.Address1 == "" {
		problems = append(problems, "address1 is required")
	}
	if out.City == "" {
		problems = append(problems, "city is required")
	}
	if out.Zip == "" {
		problems = append(problems, "zip is required")
	}

	region, err := language.ParseRegion(out.CountryCode)
	if err != nil || len(out.CountryCode) != 2 || !region.IsCountry() {
		problems = append(problems, fmt.Sprintf("country_code %q is not a country", out.CountryCode))
	} else {
		out.CountryCode = region.String()
		if _, ok := stateRequiredCountries[out.CountryCode]; ok && out.StateCode == "" {
			problems = append(problems, fmt.Sprintf("state_code is required for %s", out.CountryCode))
		}
	}

	if out.Email != "" && !validEmail(out.Email) {
		problems = append(problems, "email is invalid")
	}

	if len(problems) > 0 {
		return Recipient{}, fmt.Errorf("%w: %s", ErrInvalidRecipient, strings.Join(problems, "; "))
	}
	return out, nil
}

func validEmail(email string) bool {
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || domainPart == "" {
		return false
	}
	return !strings.Contains(domainPart, "@") && !strings.ContainsAny(email, " \t\r\n")
}

func providerRecipient(r Recipient) printful.Recipient {
	return printful.Recipient{
		Name:        r.Name,
		Address1:    r.Address1,
		Address2:    r.Address2,
		City:        r.City,
		StateCode:   r.StateCode,
		CountryCode: r.CountryCode,
		Zip:         r.Zip,
		Email:       r.Email,
		Phone:       r.Phone,
	}
}
