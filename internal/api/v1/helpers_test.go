package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/conf"
	"github.com/photoscale/photoscale/internal/datastore"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/metadata"
	"github.com/photoscale/photoscale/internal/session"
)

// MockDataStore implements datastore.Interface for testing.
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error  { return m.Called().Error(0) }
func (m *MockDataStore) Close() error { return m.Called().Error(0) }

func (m *MockDataStore) SaveCalibration(ctx context.Context, sessionID string, res *calibration.Result) error {
	return m.Called(sessionID, res).Error(0)
}

func (m *MockDataStore) GetCalibration(ctx context.Context, id string) (*calibration.Result, error) {
	args := m.Called(id)
	res, _ := args.Get(0).(*calibration.Result)
	return res, args.Error(1)
}

func (m *MockDataStore) ListCalibrations(ctx context.Context, limit int) ([]*calibration.Result, error) {
	args := m.Called(limit)
	res, _ := args.Get(0).([]*calibration.Result)
	return res, args.Error(1)
}

func (m *MockDataStore) DeleteCalibration(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockDataStore) GetPreference(ctx context.Context, key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockDataStore) SetPreference(ctx context.Context, key, value string) error {
	return m.Called(key, value).Error(0)
}

func (m *MockDataStore) LoadPreferences(ctx context.Context) (calibration.Preferences, error) {
	args := m.Called()
	return args.Get(0).(calibration.Preferences), args.Error(1)
}

func (m *MockDataStore) SavePreferences(ctx context.Context, prefs calibration.Preferences) error {
	return m.Called(prefs).Error(0)
}

var _ datastore.Interface = (*MockDataStore)(nil)

type fakeExtractor struct {
	tel *metadata.DroneTelemetry
	err error

	gotPath string
	gotData []byte
}

func (f *fakeExtractor) ExtractFile(_ context.Context, path string) (*metadata.DroneTelemetry, error) {
	f.gotPath = path
	return f.tel, f.err
}

func (f *fakeExtractor) Extract(_ context.Context, data []byte, path string) (*metadata.DroneTelemetry, error) {
	f.gotPath, f.gotData = path, data
	return f.tel, f.err
}

func phantomSpecs() *metadata.OpticalSpec {
	return &metadata.OpticalSpec{
		SensorWidthMM: 13.2, SensorHeightMM: 8.8, FocalLengthMM: 8.8,
		ResolutionWidth: 5472, ResolutionHeight: 3648,
	}
}

// droneTelemetry has an XMP relative altitude of 50 m.
func droneTelemetry() *metadata.DroneTelemetry {
	agl := 50.0
	return &metadata.DroneTelemetry{
		IsDrone:             true,
		IsOverhead:          true,
		GPS:                 &metadata.GPSFix{Latitude: 60.1699, Longitude: 24.9384},
		RelativeAltitudeAGL: &agl,
		Specs:               phantomSpecs(),
		Confidence:          metadata.ConfidenceHigh,
		DetectionMethod:     metadata.MethodDatabase,
		Make:                "DJI",
		Model:               "FC6310",
		ImageWidth:          5472,
		ImageHeight:         3648,
	}
}

// aslTelemetry has only a sea-level altitude, so the device fix decides.
func aslTelemetry() *metadata.DroneTelemetry {
	tel := droneTelemetry()
	asl := 150.0
	tel.RelativeAltitudeAGL = nil
	tel.AbsoluteAltitudeASL = &asl
	return tel
}

type testEnv struct {
	e    *echo.Echo
	c    *Controller
	ext  *fakeExtractor
	ds   *MockDataStore
	sink *session.MemorySink
}

// newTestEnv wires a controller around a real session manager. ds may be nil.
func newTestEnv(t *testing.T, ext *fakeExtractor, ds *MockDataStore) *testEnv {
	t.Helper()
	if ext == nil {
		ext = &fakeExtractor{tel: droneTelemetry()}
	}

	sink := session.NewMemorySink()
	manager := session.NewManager(ext, nil,
		session.WithSinks(sink),
		session.WithLogger(logger.NewDiscardLogger()))

	e := echo.New()
	opts := []Option{WithLogger(logger.NewDiscardLogger())}
	if ds != nil {
		opts = append(opts, WithDataStore(ds))
	}
	c, err := New(e, manager, conf.Defaults(), opts...)
	require.NoError(t, err)

	return &testEnv{e: e, c: c, ext: ext, ds: ds, sink: sink}
}

func (env *testEnv) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	return env.do(method, target, r, echo.MIMEApplicationJSON)
}

// photoUpload builds a multipart body with a "photo" file and extra fields.
func photoUpload(t *testing.T, name string, data []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if name != "" {
		fw, err := w.CreateFormFile("photo", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// mustField returns the raw JSON of one top-level field.
func mustField(t *testing.T, body []byte, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	raw, ok := m[field]
	require.True(t, ok, field)
	return string(raw)
}
