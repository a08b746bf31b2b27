// This file is part of Gopher2600.
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

// Package test provides small assertion helpers shared by every package's
// table-driven tests, so individual packages don't each reinvent
// reflect.DeepEqual boilerplate.
package test

import (
	"math"
	"reflect"
	"testing"
)

// Equate fails the test if got and want are not equal, as judged by
// reflect.DeepEqual (a nil on either side matches only another nil).
func Equate(t *testing.T, got, want interface{}) {
	t.Helper()
	if !equal(got, want) {
		t.Errorf("got %v (%T), wanted %v (%T)", got, got, want, want)
	}
}

// ExpectEquality is an alias of Equate kept for callers that prefer the
// more explicit name.
func ExpectEquality(t *testing.T, got, want interface{}) {
	t.Helper()
	Equate(t, got, want)
}

// ExpectInequality fails the test if got and want are equal.
func ExpectInequality(t *testing.T, got, want interface{}) {
	t.Helper()
	if equal(got, want) {
		t.Errorf("got %v, did not want it to equal %v", got, want)
	}
}

// ExpectApproximate fails the test unless got is within tolerance of want,
// where tolerance is a fraction of want (0.1 allows a 10% difference).
func ExpectApproximate(t *testing.T, got, want, tolerance float64) {
	t.Helper()
	tolerance *= math.Abs(want)
	if math.Abs(got-want) > tolerance {
		t.Errorf("got %v, wanted %v (+/- %v)", got, want, tolerance)
	}
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// ExpectSuccess fails the test if val represents failure: a non-nil error,
// or a plain false.
func ExpectSuccess(t *testing.T, val interface{}) {
	t.Helper()
	if !isSuccess(val) {
		t.Errorf("expected success, got %v", val)
	}
}

// ExpectFailure fails the test if val represents success.
func ExpectFailure(t *testing.T, val interface{}) {
	t.Helper()
	if isSuccess(val) {
		t.Errorf("expected failure, got %v", val)
	}
}

// ExpectedSuccess is an alias of ExpectSuccess.
func ExpectedSuccess(t *testing.T, val interface{}) {
	t.Helper()
	ExpectSuccess(t, val)
}

// ExpectedFailure is an alias of ExpectFailure.
func ExpectedFailure(t *testing.T, val interface{}) {
	t.Helper()
	ExpectFailure(t, val)
}

func isSuccess(val interface{}) bool {
	if val == nil {
		return true
	}
	switch v := val.(type) {
	case bool:
		return v
	case error:
		return v == nil
	default:
		return true
	}
}
