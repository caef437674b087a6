package require

import (
	"testing"

	"github.com/alecthomas/assert"
	"github.com/pmezard/go-difflib/difflib"
)

// fail-fast versions of github.com/alecthomas/assert functions
// i.e. the test stops at the first failed check

func failNowIfFailed(t testing.TB) {
	t.Helper()
	if t.Failed() {
		t.FailNow()
	}
}

// Len asserts that the specified object has specific length.
//
//	require.Len(t, mySlice, 3)
func Len(t testing.TB, object interface{}, length int, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Len(t, object, length, msgAndArgs...)
	failNowIfFailed(t)
}

// Nil asserts that the specified object is nil.
func Nil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Nil(t, object, msgAndArgs...)
	failNowIfFailed(t)
}

// NotNil asserts that the specified object is not nil.
func NotNil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotNil(t, object, msgAndArgs...)
	failNowIfFailed(t)
}

// NoError asserts that a function returned no error (i.e. `nil`).
//
//	v, err := SomeFunction()
//	require.NoError(t, err)
func NoError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NoError(t, err, msgAndArgs...)
	failNowIfFailed(t)
}

// Error asserts that a function returned an error
func Error(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Error(t, err, msgAndArgs...)
	failNowIfFailed(t)
}

// Equal asserts that two objects are equal.
//
//	require.Equal(t, 123, 123)
func Equal(t testing.TB, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected, actual, msgAndArgs...)
	failNowIfFailed(t)
}

// NotEqual asserts that the specified values are NOT equal.
func NotEqual(t testing.TB, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotEqual(t, expected, actual, msgAndArgs...)
	failNowIfFailed(t)
}

// True asserts that the specified value is true.
func True(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, value, msgAndArgs...)
	failNowIfFailed(t)
}

// False asserts that the specified value is false.
func False(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	assert.False(t, value, msgAndArgs...)
	failNowIfFailed(t)
}

// TextEqual compares two multi-line texts (e.g. snapshot files) and on
// mismatch fails with a unified diff, which is much easier to read than
// two big strings
func TextEqual(t testing.TB, expected string, actual string) {
	t.Helper()
	if expected == actual {
		return
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		s = err.Error()
	}
	t.Fatalf("texts are different:\n%s", s)
}
