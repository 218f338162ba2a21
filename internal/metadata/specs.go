package metadata

const (
	fullFrameWidthMM = 36.0

	oneInchSensorWidthMM  = 13.2
	oneInchSensorHeightMM = 8.8
	oneInchFocalMM        = 8.8

	smallSensorWidthMM  = 6.17
	smallSensorHeightMM = 4.55
	smallFocalMM        = 4.5

	oneInchMinMegapixels = 20.0
)

type specKey struct {
	make  string
	model string
}

// opticalSpecs is keyed by case-folded make and model. Built once, never
// written after init.
var opticalSpecs = buildSpecTable([]struct {
	make, model string
	spec        OpticalSpec
}{
	{"DJI", "FC3582", OpticalSpec{Name: "DJI Mini 3 Pro", SensorWidthMM: 9.6, SensorHeightMM: 7.2, FocalLengthMM: 6.72, ResolutionWidth: 4032, ResolutionHeight: 3024}},
	{"DJI", "FC7303", OpticalSpec{Name: "DJI Mini 2", SensorWidthMM: 6.17, SensorHeightMM: 4.55, FocalLengthMM: 4.49, ResolutionWidth: 4000, ResolutionHeight: 3000}},
	{"DJI", "FC6310", OpticalSpec{Name: "DJI Phantom 4 Pro", SensorWidthMM: 13.2, SensorHeightMM: 8.8, FocalLengthMM: 8.8, ResolutionWidth: 5472, ResolutionHeight: 3648}},
	{"DJI", "FC6310S", OpticalSpec{Name: "DJI Phantom 4 Pro V2", SensorWidthMM: 13.2, SensorHeightMM: 8.8, FocalLengthMM: 8.8, ResolutionWidth: 5472, ResolutionHeight: 3648}},
	{"DJI", "FC220", OpticalSpec{Name: "DJI Mavic Pro", SensorWidthMM: 6.17, SensorHeightMM: 4.55, FocalLengthMM: 4.73, ResolutionWidth: 4000, ResolutionHeight: 3000}},
	{"DJI", "FC3170", OpticalSpec{Name: "DJI Mavic Air 2", SensorWidthMM: 6.4, SensorHeightMM: 4.8, FocalLengthMM: 4.49, ResolutionWidth: 4000, ResolutionHeight: 3000}},
	{"DJI", "FC3411", OpticalSpec{Name: "DJI Air 2S", SensorWidthMM: 13.2, SensorHeightMM: 8.8, FocalLengthMM: 8.38, ResolutionWidth: 5472, ResolutionHeight: 3648}},
	{"DJI", "FC330", OpticalSpec{Name: "DJI Phantom 4", SensorWidthMM: 6.17, SensorHeightMM: 4.55, FocalLengthMM: 3.61, ResolutionWidth: 4000, ResolutionHeight: 3000}},
	{"DJI", "L2D-20c", OpticalSpec{Name: "DJI Mavic 3", SensorWidthMM: 17.3, SensorHeightMM: 13.0, FocalLengthMM: 12.29, ResolutionWidth: 5280, ResolutionHeight: 3956}},
	{"Hasselblad", "L2D-20c", OpticalSpec{Name: "DJI Mavic 3", SensorWidthMM: 17.3, SensorHeightMM: 13.0, FocalLengthMM: 12.29, ResolutionWidth: 5280, ResolutionHeight: 3956}},
	{"Hasselblad", "L1D-20c", OpticalSpec{Name: "DJI Mavic 2 Pro", SensorWidthMM: 13.2, SensorHeightMM: 8.8, FocalLengthMM: 10.26, ResolutionWidth: 5472, ResolutionHeight: 3648}},
	{"Autel Robotics", "XT701", OpticalSpec{Name: "Autel EVO II", SensorWidthMM: 8.0, SensorHeightMM: 6.0, FocalLengthMM: 4.73, ResolutionWidth: 8000, ResolutionHeight: 6000}},
	{"Parrot", "Anafi", OpticalSpec{Name: "Parrot Anafi", SensorWidthMM: 6.17, SensorHeightMM: 4.55, FocalLengthMM: 4.0, ResolutionWidth: 5344, ResolutionHeight: 4016}},
})

func buildSpecTable(rows []struct {
	make, model string
	spec        OpticalSpec
}) map[specKey]OpticalSpec {
	out := make(map[specKey]OpticalSpec, len(rows))
	for _, r := range rows {
		out[specKey{foldKey(r.make), foldKey(r.model)}] = r.spec
	}
	return out
}

// LookupSpec finds the exact table entry for a camera. DJI writes either
// "DJI" or "Hasselblad" as make depending on model, so a model-only match
// is accepted when the make is a known drone manufacturer.
func LookupSpec(cameraMake, model string) (OpticalSpec, bool) {
	mk, md := foldKey(cameraMake), foldKey(model)
	if md == "" {
		return OpticalSpec{}, false
	}
	if spec, ok := opticalSpecs[specKey{mk, md}]; ok {
		return spec, true
	}
	if !IsDroneManufacturer(cameraMake) {
		return OpticalSpec{}, false
	}
	for k, spec := range opticalSpecs {
		if k.model == md {
			return spec, true
		}
	}
	return OpticalSpec{}, false
}

// SpecInput is what the spec resolver needs from extraction.
type SpecInput struct {
	Make            string
	Model           string
	FocalLength     float64
	FocalLength35mm float64
	ImageWidth      int
	ImageHeight     int
}

// ResolveSpec runs the table lookup and the three estimation tiers.
// It never fails: the last tier is a fixed conservative sensor.
func ResolveSpec(in SpecInput) (OpticalSpec, Confidence, DetectionMethod) {
	if spec, ok := LookupSpec(in.Make, in.Model); ok {
		if in.ImageWidth > 0 && in.ImageHeight > 0 {
			spec.ResolutionWidth, spec.ResolutionHeight = in.ImageWidth, in.ImageHeight
		}
		return spec, ConfidenceHigh, MethodDatabase
	}

	// Tier A: crop factor from the 35mm equivalent.
	if in.FocalLength > 0 && in.FocalLength35mm > 0 {
		crop := in.FocalLength35mm / in.FocalLength
		width := fullFrameWidthMM / crop
		height := width * 2 / 3
		if in.ImageWidth > 0 && in.ImageHeight > 0 {
			height = width * float64(in.ImageHeight) / float64(in.ImageWidth)
		}
		return OpticalSpec{
			Name:             "estimated from 35mm equivalent",
			SensorWidthMM:    width,
			SensorHeightMM:   height,
			FocalLengthMM:    in.FocalLength,
			ResolutionWidth:  in.ImageWidth,
			ResolutionHeight: in.ImageHeight,
		}, ConfidenceHigh, MethodEstimated
	}

	// Tier B: megapixel bucket.
	if in.ImageWidth > 0 && in.ImageHeight > 0 {
		spec := OpticalSpec{
			Name:             "1/2.3-inch class estimate",
			SensorWidthMM:    smallSensorWidthMM,
			SensorHeightMM:   smallSensorHeightMM,
			FocalLengthMM:    smallFocalMM,
			ResolutionWidth:  in.ImageWidth,
			ResolutionHeight: in.ImageHeight,
		}
		if spec.Megapixels() >= oneInchMinMegapixels {
			spec.Name = "1-inch class estimate"
			spec.SensorWidthMM = oneInchSensorWidthMM
			spec.SensorHeightMM = oneInchSensorHeightMM
			spec.FocalLengthMM = oneInchFocalMM
		}
		return spec, ConfidenceMedium, MethodEstimated
	}

	// Tier C.
	return OpticalSpec{
		Name:           "conservative fallback",
		SensorWidthMM:  smallSensorWidthMM,
		SensorHeightMM: smallSensorHeightMM,
		FocalLengthMM:  smallFocalMM,
	}, ConfidenceLow, MethodEstimated
}

// Megapixels reports the unrounded pixel count in millions.
func (s OpticalSpec) Megapixels() float64 {
	return float64(s.ResolutionWidth) * float64(s.ResolutionHeight) / 1e6
}
