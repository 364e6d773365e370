package http

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/internal/service"
)

// maxMultipartMemory caps the in-memory portion of a parsed multipart form.
// Larger parts spill to temp files.
const maxMultipartMemory = 8 << 20

// maxUploadBytes bounds the whole multipart request body. Three documents at
// the 5MB document limit plus form fields fit comfortably.
const maxUploadBytes = 20 << 20

// formFile reads one named file part into a service.FileUpload. A missing
// part returns (nil, nil); callers decide whether the slot is required.
func formFile(r *http.Request, name string) (*service.FileUpload, error) {
	file, header, err := r.FormFile(name)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return &service.FileUpload{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

func partContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// formAddress assembles the address from the form. Clients send either
// bracketed fields (address[line1], address[city], ...) or a single JSON
// "address" field; both are normalized into the same struct.
func formAddress(r *http.Request) (domain.Address, error) {
	if raw := r.FormValue("address"); raw != "" {
		var addr domain.Address
		if err := json.Unmarshal([]byte(raw), &addr); err != nil {
			return domain.Address{}, fmt.Errorf("parse address field: %w", err)
		}
		return addr, nil
	}

	return domain.Address{
		Line1:      r.FormValue("address[line1]"),
		Line2:      r.FormValue("address[line2]"),
		City:       r.FormValue("address[city]"),
		State:      r.FormValue("address[state]"),
		PostalCode: r.FormValue("address[postal_code]"),
	}, nil
}

// hasAddressFields reports whether the form carries any address input at all,
// so profile updates can distinguish "unchanged" from "replace".
func hasAddressFields(r *http.Request) bool {
	if r.FormValue("address") != "" {
		return true
	}
	for _, key := range []string{"address[line1]", "address[line2]", "address[city]", "address[state]", "address[postal_code]"} {
		if _, ok := r.Form[key]; ok {
			return true
		}
	}
	return false
}

// formDate parses a date form value, accepting a plain date or RFC 3339.
func formDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
