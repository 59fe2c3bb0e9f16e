package validation

import (
	"regexp"
	"strings"

	"github.com/RMahshie/sdrwatch/pkg/models"
)

// Node form field names
const (
	FieldAddress   = "address"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
)

// addressPattern accepts an optional http(s) scheme followed by either a
// dotted IPv4 address or a hostname with a TLD, each with optional port and path.
var addressPattern = regexp.MustCompile(`(?i)` +
	`^(https?://)?((25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])(:[0-9]{1,5})?(/.*)?$` +
	`|` +
	`^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})(:[0-9]{1,5})?(/.*)?$`)

// NodeForm is the add-radio form
var NodeForm = NewForm("node",
	Field{Name: FieldAddress, Label: "Address", Checks: []Check{
		Required(),
		Matches(addressPattern, "Address should be a valid URL"),
	}},
	Field{Name: FieldLatitude, Label: "Latitude", Checks: []Check{Required(), Number(), Between(-90, 90)}},
	Field{Name: FieldLongitude, Label: "Longitude", Checks: []Check{Required(), Number(), Between(-180, 180)}},
)

// ValidateNode validates raw add-radio inputs
func ValidateNode(values map[string]string) State {
	return NodeForm.Validate(values)
}

// NodeRegistration converts a valid node form state into a registration
func NodeRegistration(s State) (models.NodeRegistration, error) {
	if s.Status() != Valid {
		return models.NodeRegistration{}, ErrNotValid
	}
	lat, _ := s.Float(FieldLatitude)
	lon, _ := s.Float(FieldLongitude)
	return models.NodeRegistration{
		Address:   strings.TrimSpace(s.Value(FieldAddress)),
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
