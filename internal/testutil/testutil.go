// Package testutil provides assertion helpers and HTTP fixtures shared by
// the handler and pose matching tests.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashgrove-robotics/fieldpose/internal/field"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertPoseNear checks that two poses agree within tol on every
// component. Use an exact comparison instead when no arithmetic is
// involved.
func AssertPoseNear(t *testing.T, got, want field.Pose, tol float64) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol ||
		math.Abs(got.Y-want.Y) > tol ||
		math.Abs(got.Heading-want.Heading) > tol {
		t.Errorf("pose = %v, want %v (tol %g)", got, want, tol)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
