// Package test holds the small assertion helpers shared by package tests.
package test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func Equal[T any](t *testing.T, expected, actual T) bool {
	t.Helper()

	if !reflect.DeepEqual(expected, actual) {
		t.Errorf(""+
			"Not equal: \n"+
			"Expected: %#v\n"+
			"Actual:   %#v", expected, actual)
		return false
	}

	return true
}

func EqualBytes(t *testing.T, expected, actual []byte) bool {
	t.Helper()

	if !bytes.Equal(expected, actual) {
		t.Errorf(""+
			"Bytes not equal: \n"+
			"Expected: %q\n"+
			"Actual:   %q", expected, actual)
		return false
	}

	return true
}

func NoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func ErrorIs(t *testing.T, err, target error) bool {
	t.Helper()

	if !errors.Is(err, target) {
		t.Errorf("expected error %v, got %v", target, err)
		return false
	}

	return true
}

func True(t *testing.T, value bool, msg string) bool {
	t.Helper()

	if !value {
		t.Error(msg)
		return false
	}

	return true
}
