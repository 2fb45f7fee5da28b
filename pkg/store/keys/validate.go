package keys

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// letters, digits, dot, underscore, dash; bounded to protect key shapes
	idRegexp = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)
)

// ValidateID checks internal ids (conversation, message, user, blob handle).
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id empty")
	}
	if !idRegexp.MatchString(id) {
		return fmt.Errorf("invalid id: %q", id)
	}
	return nil
}

// ValidateExternalID checks ids issued by an identity provider.
// They may carry characters like "|" or "@" but never the key separator.
func ValidateExternalID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("external id empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("external id exceeds %d bytes", MaxIDLength)
	}
	if strings.ContainsAny(id, ":\r\n") {
		return fmt.Errorf("invalid external id: %q", id)
	}
	return nil
}
