package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/giftflow/giftflow/internal/domain"
)

// Australian-market validation rules. Registration is open to Australian
// residents only, so postcode, state, and phone formats are pinned to the
// local conventions.

var (
	auPostcodeRe = regexp.MustCompile(`^\d{4}$`)
	// Local 04xx mobile numbers or the +61 international form.
	auMobileRe = regexp.MustCompile(`^(04\d{8}|\+614\d{8})$`)
	// BSB: six digits, optionally split 3-3 with a hyphen.
	auBSBRe           = regexp.MustCompile(`^\d{3}-?\d{3}$`)
	auAccountNumberRe = regexp.MustCompile(`^\d{5,9}$`)
)

// auStates accepts both the abbreviation and the full state name,
// case-insensitively.
var auStates = map[string]bool{
	"nsw": true, "new south wales": true,
	"vic": true, "victoria": true,
	"qld": true, "queensland": true,
	"sa": true, "south australia": true,
	"wa": true, "western australia": true,
	"tas": true, "tasmania": true,
	"act": true, "australian capital territory": true,
	"nt": true, "northern territory": true,
}

func validAUState(state string) bool {
	return auStates[strings.ToLower(strings.TrimSpace(state))]
}

func validateAddress(addr domain.Address, fields map[string]string) {
	if strings.TrimSpace(addr.Line1) == "" {
		fields["address.line1"] = "address line 1 is required"
	}
	if strings.TrimSpace(addr.City) == "" {
		fields["address.city"] = "city is required"
	}
	if !validAUState(addr.State) {
		fields["address.state"] = "state must be an Australian state or territory"
	}
	if !auPostcodeRe.MatchString(addr.PostalCode) {
		fields["address.postal_code"] = "postcode must be 4 digits"
	}
}

func validatePhone(phone string, fields map[string]string) {
	if !auMobileRe.MatchString(strings.ReplaceAll(phone, " ", "")) {
		fields["phone"] = "phone must be an Australian mobile (04xxxxxxxx or +614xxxxxxxx)"
	}
}

func validateAge(dob time.Time, minAge int, now time.Time, fields map[string]string) {
	if dob.IsZero() {
		fields["date_of_birth"] = "date of birth is required"
		return
	}
	if dob.After(now.AddDate(-minAge, 0, 0)) {
		fields["date_of_birth"] = fmt.Sprintf("must be at least %d years old", minAge)
	}
}

func validateBankDetails(routing, account string, fields map[string]string) {
	if !auBSBRe.MatchString(routing) {
		fields["routing_number"] = "BSB must be 6 digits"
	}
	if !auAccountNumberRe.MatchString(account) {
		fields["account_number"] = "account number must be 5 to 9 digits"
	}
}

func validateDocument(slot string, doc *FileUpload, required bool, maxSize int64, fields map[string]string) {
	if doc == nil {
		if required {
			fields["documents."+slot] = "document is required"
		}
		return
	}
	if !allowedExtension(doc.Filename, documentExtensions) {
		fields["documents."+slot] = "document must be a .jpg, .jpeg, .png or .pdf file"
		return
	}
	if doc.Size > maxSize {
		fields["documents."+slot] = fmt.Sprintf("document exceeds the %d MB limit", maxSize/(1<<20))
	}
}
