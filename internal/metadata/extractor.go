package metadata

import (
	"context"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/photoscale/photoscale/internal/errors"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/observability/metrics"
)

// DefaultMaxFileBytes caps how much of a photo is read into memory.
const DefaultMaxFileBytes int64 = 200 << 20

const (
	stageXMP    = "xmp"
	stageHeader = "header"
)

// FileReader loads raw photo bytes.
type FileReader interface {
	ReadBytes(ctx context.Context, path string) ([]byte, error)
}

// OSFileReader reads from the local filesystem.
type OSFileReader struct {
	MaxBytes int64
}

// ReadBytes implements FileReader. A missing file is reported with the
// not-found category, every other failure as file I/O.
func (r OSFileReader) ReadBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		category := errors.CategoryFileIO
		if errors.Is(err, fs.ErrNotExist) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("metadata").
			Category(category).
			Context("operation", "read_photo").
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	limit := r.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return nil, errors.New(err).
			Component("metadata").
			Category(errors.CategoryFileIO).
			Context("operation", "read_photo").
			FileContext(path, int64(len(data))).
			Build()
	}
	return data, nil
}

// Extractor runs the layered extraction for one photo at a time. It holds
// no per-photo state and is safe for concurrent use.
type Extractor struct {
	chain   *Chain
	reader  FileReader
	log     logger.Logger
	metrics *metrics.CalibrationMetrics
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFileReader replaces the filesystem reader.
func WithFileReader(r FileReader) Option {
	return func(e *Extractor) { e.reader = r }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithMetrics records extraction outcomes.
func WithMetrics(m *metrics.CalibrationMetrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// NewExtractor builds an extractor over the given structured sources. With
// no chain the EXIF parser alone is used.
func NewExtractor(chain *Chain, opts ...Option) *Extractor {
	if chain == nil {
		chain = NewChain(ExifSource{})
	}
	e := &Extractor{
		chain:  chain,
		reader: OSFileReader{},
		log:    logger.Global().Module("metadata"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile reads path and extracts its telemetry. File errors are
// returned as is; parsing never fails.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*DroneTelemetry, error) {
	data, err := e.reader.ReadBytes(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, data, path)
}

// Extract recovers telemetry from raw bytes. path is optional and only
// handed to sources that can read files themselves. The only error is
// context cancellation; a photo with nothing usable yields Confidence none.
func (e *Extractor) Extract(ctx context.Context, data []byte, path string) (*DroneTelemetry, error) {
	start := time.Now()
	tel := &DroneTelemetry{}

	xmp := ParseXMP(data)
	if xmp.Found {
		tel.RelativeAltitudeAGL = xmp.RelativeAltitude
		tel.AbsoluteAltitudeASL = xmp.AbsoluteAltitude
		tel.Gimbal = xmp.Gimbal
		tel.Make, tel.Model = xmp.Make, xmp.Model
		if xmp.RelativeAltitude != nil || xmp.AbsoluteAltitude != nil || xmp.Gimbal != nil {
			tel.Sources = append(tel.Sources, stageXMP)
			e.metrics.RecordExtractionSource(stageXMP, metrics.StatusSuccess)
		}
	}

	res, err := e.chain.Run(ctx, data, path)
	if err != nil {
		return nil, err
	}
	for name, ferr := range res.Failures {
		e.log.Debug("metadata source failed",
			logger.String("source", name),
			logger.Error(ferr))
		e.metrics.RecordExtractionSource(name, metrics.StatusError)
	}
	if md := res.Metadata; md != nil {
		tel.Sources = append(tel.Sources, res.Source)
		e.metrics.RecordExtractionSource(res.Source, metrics.StatusSuccess)
		if md.Make != "" {
			tel.Make = md.Make
		}
		if md.Model != "" {
			tel.Model = md.Model
		}
		tel.GPS = md.GPS
		tel.FocalLength = md.FocalLength
		tel.FocalLength35mm = md.FocalLength35mm
		tel.ImageWidth, tel.ImageHeight = md.ImageWidth, md.ImageHeight
		tel.CapturedAt = md.CapturedAt
	}

	usable := len(tel.Sources) > 0 || tel.Make != "" || tel.Model != ""

	if tel.ImageWidth == 0 || tel.ImageHeight == 0 {
		if w, h, _, ok := ProbeDimensions(data); ok {
			tel.ImageWidth, tel.ImageHeight = w, h
			tel.Sources = append(tel.Sources, stageHeader)
		}
	}

	if !usable {
		tel.Confidence = ConfidenceNone
		tel.DetectionMethod = MethodManualRequired
		e.metrics.RecordExtraction(string(tel.Confidence), string(tel.DetectionMethod))
		e.log.Info("no usable metadata in photo",
			logger.Int("bytes", len(data)),
			logger.Duration("elapsed", time.Since(start)))
		return tel, nil
	}

	spec, confidence, method := ResolveSpec(SpecInput{
		Make:            tel.Make,
		Model:           tel.Model,
		FocalLength:     tel.FocalLength,
		FocalLength35mm: tel.FocalLength35mm,
		ImageWidth:      tel.ImageWidth,
		ImageHeight:     tel.ImageHeight,
	})
	tel.Specs = &spec
	tel.Confidence = confidence
	tel.DetectionMethod = method

	gps := tel.GPS
	if gps != nil && gps.AltitudeASL == nil && tel.AbsoluteAltitudeASL != nil {
		// Detection looks at the best available ASL altitude.
		withAlt := *gps
		withAlt.AltitudeASL = tel.AbsoluteAltitudeASL
		gps = &withAlt
	}
	tel.IsDrone = DetectDrone(tel.Make, tel.Model, gps, tel.Gimbal)
	tel.IsOverhead = tel.IsDrone

	e.metrics.RecordExtraction(string(tel.Confidence), string(tel.DetectionMethod))
	e.log.Debug("metadata extracted",
		logger.String("make", tel.Make),
		logger.String("model", tel.Model),
		logger.Bool("is_drone", tel.IsDrone),
		logger.String("confidence", string(tel.Confidence)),
		logger.Any("sources", tel.Sources),
		logger.Duration("elapsed", time.Since(start)))

	return tel, nil
}
