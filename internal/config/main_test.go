//go:build dev

package config

import (
	"os"
	"testing"
)

// adds our test values, when this file is included with go -tags
func init() {
	defaultValues["_TEST_INT_VALUE"] = 10
	defaultValues["_TEST_STR_VALUE"] = "AAA"
	defaultValues["_TEST_BOOL_VALUE"] = false
}

func TestString(t *testing.T) {

	// unset env var, this should return the value in defaultValues
	os.Unsetenv("_TEST_STR_VALUE")
	if "AAA" != StringValue("_TEST_STR_VALUE") {
		t.Errorf("AAA does not match %v", StringValue("_TEST_STR_VALUE"))
	}

	os.Setenv("_TEST_STR_VALUE", "hello")
	if "hello" != StringValue("_TEST_STR_VALUE") {
		t.Errorf("hello does not match %v", StringValue("_TEST_STR_VALUE"))
	}
	os.Unsetenv("_TEST_STR_VALUE")
}

func TestInt(t *testing.T) {

	os.Unsetenv("_TEST_INT_VALUE")
	if 10 != IntValue("_TEST_INT_VALUE") {
		t.Errorf("10 does not match %v", IntValue("_TEST_INT_VALUE"))
	}

	os.Setenv("_TEST_INT_VALUE", "20")
	if 20 != IntValue("_TEST_INT_VALUE") {
		t.Errorf("20 does not match %v", IntValue("_TEST_INT_VALUE"))
	}
	os.Unsetenv("_TEST_INT_VALUE")

	// a non-int env var is ignored
	os.Setenv("_TEST_INT_VALUE", ";")
	if 10 != IntValue("_TEST_INT_VALUE") {
		t.Errorf("10 does not match %v", IntValue("_TEST_INT_VALUE"))
	}
	os.Unsetenv("_TEST_INT_VALUE")
}

func TestBool(t *testing.T) {

	os.Unsetenv("_TEST_BOOL_VALUE")
	if false != BoolValue("_TEST_BOOL_VALUE") {
		t.Errorf("false does not match %v", BoolValue("_TEST_BOOL_VALUE"))
	}

	os.Setenv("_TEST_BOOL_VALUE", "true")
	if true != BoolValue("_TEST_BOOL_VALUE") {
		t.Errorf("true does not match %v", BoolValue("_TEST_BOOL_VALUE"))
	}
	os.Unsetenv("_TEST_BOOL_VALUE")

	os.Setenv("_TEST_BOOL_VALUE", "hello")
	if false != BoolValue("_TEST_BOOL_VALUE") {
		t.Errorf("false does not match %v", BoolValue("_TEST_BOOL_VALUE"))
	}
	os.Unsetenv("_TEST_BOOL_VALUE")
}

func TestUnknownKey(t *testing.T) {
	if StringValue("DBPROBE_NOT_A_KEY") != "" {
		t.Error("unknown string key should be empty")
	}
	if IntValue("DBPROBE_NOT_A_KEY") != 0 {
		t.Error("unknown int key should be zero")
	}
}
