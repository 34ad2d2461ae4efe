package bri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"rfid_llrp_go/sdk"
)

// Field is a tag attribute requested in a READ command. Event lines carry
// field values in the order the fields were requested.
type Field string

const (
	FieldTagID   Field = "TAGID"
	FieldAntenna Field = "ANT"
	FieldCount   Field = "COUNT"
	FieldRSSI    Field = "RSSI"
)

const (
	eventPrefix = "EVT:"
	tagEvent    = "TAG"
	hexPrefix   = "H"

	// defaultAntenna is reported when ANT was not requested or not sent.
	defaultAntenna = 0
)

var errMalformedEvent = errors.New("malformed BRI event")

// readCommand builds "READ <fields> REPORT=EVENT".
func readCommand(fields []Field) string {
	parts := make([]string, 0, len(fields)+2)
	parts = append(parts, "READ")
	for _, f := range fields {
		parts = append(parts, string(f))
	}
	parts = append(parts, "REPORT=EVENT")
	return strings.Join(parts, " ")
}

func antennasCommand(antennas []sdk.AntennaConfig) string {
	ids := make([]string, 0, len(antennas))
	for _, a := range antennas {
		ids = append(ids, strconv.Itoa(a.Number))
	}
	return "ATTRIB ANTS=" + strings.Join(ids, ",")
}

// parseTagEvent decodes "EVT:TAG H<tagkey> <field values>".
func parseTagEvent(line string, fields []Field) (sdk.Tag, error) {
	body := strings.TrimPrefix(line, eventPrefix)
	parts := strings.Fields(body)
	if len(parts) < 2 || parts[0] != tagEvent {
		return sdk.Tag{}, errors.Wrapf(errMalformedEvent, "%q", line)
	}

	tag := sdk.Tag{
		EPC:     stripHex(parts[1]),
		Antenna: defaultAntenna,
	}
	if tag.EPC == "" {
		return sdk.Tag{}, errors.Wrapf(errMalformedEvent, "empty tag key in %q", line)
	}

	values := parts[2:]
	if v, ok := fieldValue(values, fields, FieldAntenna); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return sdk.Tag{}, errors.Wrapf(errMalformedEvent, "antenna %q", v)
		}
		tag.Antenna = n
	}
	if v, ok := fieldValue(values, fields, FieldTagID); ok {
		tag.TID = stripHex(v)
	}
	return tag, nil
}

func fieldValue(values []string, fields []Field, want Field) (string, bool) {
	for i, f := range fields {
		if f == want {
			if i < len(values) {
				return values[i], true
			}
			return "", false
		}
	}
	return "", false
}

func stripHex(v string) string {
	if len(v) >= len(hexPrefix) && strings.EqualFold(v[:len(hexPrefix)], hexPrefix) {
		v = v[len(hexPrefix):]
	}
	return strings.ToUpper(v)
}
