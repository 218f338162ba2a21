package metadata

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

const (
	xmpStartMarker = "<x:xmpmeta"
	xmpEndMarker   = "</x:xmpmeta>"
)

// Vendors rename XMP fields across firmware versions; each field is looked up
// through its aliases in order and the first hit wins.
var (
	relativeAltitudeKeys = []string{
		"drone-dji:RelativeAltitude",
		"drone:RelativeAltitude",
		"autel:RelativeAltitude",
		"Camera:RelativeAltitude",
	}
	absoluteAltitudeKeys = []string{
		"drone-dji:AbsoluteAltitude",
		"drone:AbsoluteAltitude",
		"autel:AbsoluteAltitude",
		"Camera:AbsoluteAltitude",
	}
	gimbalPitchKeys = []string{
		"drone-dji:GimbalPitchDegree",
		"drone:GimbalPitchDegree",
		"autel:GimbalPitchDegree",
		"drone-parrot:CameraPitchDegree",
		"Camera:Pitch",
	}
	gimbalYawKeys = []string{
		"drone-dji:GimbalYawDegree",
		"drone:GimbalYawDegree",
		"autel:GimbalYawDegree",
		"drone-parrot:CameraYawDegree",
		"Camera:Yaw",
	}
	gimbalRollKeys = []string{
		"drone-dji:GimbalRollDegree",
		"drone:GimbalRollDegree",
		"autel:GimbalRollDegree",
		"drone-parrot:CameraRollDegree",
		"Camera:Roll",
	}
	makeKeys  = []string{"tiff:Make", "exif:Make"}
	modelKeys = []string{"tiff:Model", "exif:Model"}
)

// xmpPatterns holds the element and attribute matchers for one key.
type xmpPatterns struct {
	element   *regexp.Regexp
	attribute *regexp.Regexp
}

var xmpKeyPatterns = compileXMPPatterns(
	relativeAltitudeKeys, absoluteAltitudeKeys,
	gimbalPitchKeys, gimbalYawKeys, gimbalRollKeys,
	makeKeys, modelKeys,
)

func compileXMPPatterns(lists ...[]string) map[string]xmpPatterns {
	out := make(map[string]xmpPatterns)
	for _, keys := range lists {
		for _, key := range keys {
			q := regexp.QuoteMeta(key)
			out[key] = xmpPatterns{
				element:   regexp.MustCompile(`<` + q + `(?:\s[^>]*)?>\s*([^<]*?)\s*</` + q + `>`),
				attribute: regexp.MustCompile(`(?:^|[\s<])` + q + `\s*=\s*["']([^"']*)["']`),
			}
		}
	}
	return out
}

// XMPData is what the vendor XMP packet yielded.
type XMPData struct {
	Found            bool
	RelativeAltitude *float64
	AbsoluteAltitude *float64
	Gimbal           *Gimbal
	Make             string
	Model            string
}

// FindXMPPacket locates the XMP packet in raw file bytes by marker search.
// It returns nil when the file carries no complete packet.
func FindXMPPacket(data []byte) []byte {
	start := bytes.Index(data, []byte(xmpStartMarker))
	if start < 0 {
		return nil
	}
	end := bytes.Index(data[start:], []byte(xmpEndMarker))
	if end < 0 {
		return nil
	}
	return data[start : start+end+len(xmpEndMarker)]
}

// ParseXMP extracts vendor flight telemetry from raw file bytes.
func ParseXMP(data []byte) XMPData {
	packet := FindXMPPacket(data)
	if packet == nil {
		return XMPData{}
	}

	text := string(packet)
	out := XMPData{Found: true}

	out.RelativeAltitude = lookupFloat(text, relativeAltitudeKeys)
	out.AbsoluteAltitude = lookupFloat(text, absoluteAltitudeKeys)

	pitch := lookupFloat(text, gimbalPitchKeys)
	yaw := lookupFloat(text, gimbalYawKeys)
	roll := lookupFloat(text, gimbalRollKeys)
	if pitch != nil || yaw != nil || roll != nil {
		g := &Gimbal{}
		if pitch != nil {
			g.Pitch = *pitch
		}
		if yaw != nil {
			g.Yaw = *yaw
		}
		if roll != nil {
			g.Roll = *roll
		}
		out.Gimbal = g
	}

	out.Make, _ = lookupString(text, makeKeys)
	out.Model, _ = lookupString(text, modelKeys)

	return out
}

// lookupString returns the first alias present in either element or
// attribute form.
func lookupString(text string, keys []string) (string, bool) {
	for _, key := range keys {
		if !strings.Contains(text, key) {
			continue
		}
		p := xmpKeyPatterns[key]
		if m := p.element.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
		if m := p.attribute.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// lookupFloat is lookupString for numeric fields. An alias whose value does
// not parse is skipped so a later alias can still match.
func lookupFloat(text string, keys []string) *float64 {
	for i := range keys {
		raw, ok := lookupString(text, keys[i:i+1])
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return float64Ptr(v)
	}
	return nil
}
