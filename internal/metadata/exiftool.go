package metadata

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/photoscale/photoscale/internal/errors"
)

const (
	defaultExifToolPath    = "exiftool"
	defaultExifToolTimeout = 10 * time.Second
	exifToolTimeLayout     = "2006:01:02 15:04:05"
)

// runFunc executes an external command and returns its stdout.
type runFunc func(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error)

// ExifToolSource is the alternate metadata source. It shells out to
// exiftool, which understands far more maker formats than the EXIF parser,
// and reads its JSON output.
type ExifToolSource struct {
	Path    string
	Timeout time.Duration
	run     runFunc
}

// NewExifToolSource returns a source using the exiftool binary at path.
func NewExifToolSource(path string, timeout time.Duration) *ExifToolSource {
	if path == "" {
		path = defaultExifToolPath
	}
	if timeout <= 0 {
		timeout = defaultExifToolTimeout
	}
	return &ExifToolSource{Path: path, Timeout: timeout, run: runCommand}
}

// Name implements Source.
func (s *ExifToolSource) Name() string { return "exiftool" }

// Available reports whether the binary can be found.
func (s *ExifToolSource) Available() bool {
	_, err := exec.LookPath(s.Path)
	return err == nil
}

// Extract implements Source. The bytes are piped through stdin; path is
// only read by exiftool when there are no bytes.
func (s *ExifToolSource) Extract(ctx context.Context, data []byte, path string) (*StructuredMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	target := "-"
	var stdin []byte
	if len(data) == 0 && path != "" {
		target = path
	} else {
		stdin = data
	}

	out, err := s.run(ctx, s.Path, stdin, "-json", "-n", target)
	if err != nil {
		category := errors.CategoryCommandExecution
		if ctx.Err() != nil {
			category = errors.CategoryTimeout
		}
		return nil, errors.New(err).
			Component("metadata").
			Category(category).
			Context("source", "exiftool").
			Build()
	}

	return parseExifToolJSON(out)
}

func runCommand(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, errors.Newf("%w: %s", err, strings.TrimSpace(stderr.String())).Build()
	}
	return out, err
}

// parseExifToolJSON reads the first object of `exiftool -json -n` output.
// With -n, coordinates are signed decimal degrees and altitudes plain numbers.
func parseExifToolJSON(out []byte) (*StructuredMetadata, error) {
	v, err := jason.NewValueFromBytes(out)
	if err != nil {
		return nil, errors.New(err).
			Component("metadata").
			Category(errors.CategoryFileParsing).
			Context("source", "exiftool").
			Build()
	}
	arr, err := v.Array()
	if err != nil || len(arr) == 0 {
		return nil, errors.Newf("exiftool returned no objects").
			Component("metadata").
			Category(errors.CategoryFileParsing).
			Build()
	}
	obj, err := arr[0].Object()
	if err != nil {
		return nil, errors.New(err).
			Component("metadata").
			Category(errors.CategoryFileParsing).
			Build()
	}

	md := &StructuredMetadata{
		Make:  jsonString(obj, "Make"),
		Model: jsonString(obj, "Model"),
	}
	md.FocalLength, _ = obj.GetFloat64("FocalLength")
	md.FocalLength35mm, _ = obj.GetFloat64("FocalLengthIn35mmFormat")
	md.ImageWidth = jsonInt(obj, "ExifImageWidth", "ImageWidth")
	md.ImageHeight = jsonInt(obj, "ExifImageHeight", "ImageHeight")

	if raw, err := obj.GetString("DateTimeOriginal"); err == nil {
		if t, err := time.Parse(exifToolTimeLayout, raw); err == nil {
			md.CapturedAt = t
		}
	}

	lat, errLat := obj.GetFloat64("GPSLatitude")
	lon, errLon := obj.GetFloat64("GPSLongitude")
	if errLat == nil && errLon == nil {
		fix := &GPSFix{Latitude: lat, Longitude: lon}
		if ref, err := obj.GetInt64("GPSAltitudeRef"); err == nil {
			fix.AltitudeRef = int(ref)
		}
		if alt, err := obj.GetFloat64("GPSAltitude"); err == nil {
			fix.AltitudeASL = float64Ptr(signedAltitude(alt, fix.AltitudeRef))
		}
		md.GPS = fix
	}

	return md, nil
}

// jsonString accepts numbers too: some cameras report purely numeric models.
func jsonString(obj *jason.Object, key string) string {
	if s, err := obj.GetString(key); err == nil {
		return strings.TrimSpace(s)
	}
	if n, err := obj.GetNumber(key); err == nil {
		return n.String()
	}
	return ""
}

func jsonInt(obj *jason.Object, keys ...string) int {
	for _, key := range keys {
		if v, err := obj.GetInt64(key); err == nil && v > 0 {
			return int(v)
		}
	}
	return 0
}
