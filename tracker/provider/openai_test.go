package provider

import (
	"errors"
	"testing"
)

func TestDecodeModelJSON_FastPath(t *testing.T) {
	t.Parallel()

	var out PostSummary
	if err := DecodeModelJSON(`{"summary":"people like it","themes":["safety","gait"]}`, &out); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if out.Summary != "people like it" || len(out.Themes) != 2 {
		t.Fatalf("out=%+v", out)
	}
}

func TestDecodeModelJSON_ExtractsWrappedObject(t *testing.T) {
	t.Parallel()

	var out PostSummary
	text := "Here is the JSON:\n{\"summary\":\"s\",\"themes\":[]}\nThanks!"
	if err := DecodeModelJSON(text, &out); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if out.Summary != "s" {
		t.Fatalf("out=%+v", out)
	}
}

func TestDecodeModelJSON_Malformed(t *testing.T) {
	t.Parallel()

	var out PostSummary
	for _, text := range []string{"", "not json at all", `{"summary": "trunca`} {
		if err := DecodeModelJSON(text, &out); err == nil {
			t.Fatalf("DecodeModelJSON(%q) succeeded, want error", text)
		}
	}
}

func TestMalformedOutputError_Unwraps(t *testing.T) {
	t.Parallel()

	inner := errors.New("bad json")
	err := error(&MalformedOutputError{Err: inner, OutputPrefix: "x"})
	if !errors.Is(err, inner) {
		t.Fatal("MalformedOutputError does not unwrap its cause")
	}
	var moe *MalformedOutputError
	if !errors.As(err, &moe) {
		t.Fatal("errors.As failed for MalformedOutputError")
	}
}

func TestGenerateSchema_StrictModeCompliance(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema[PostSummary]()
	if schema[typeKey] != "object" {
		t.Fatalf("schema type=%v, want object", schema[typeKey])
	}
	if ap, ok := schema[additionalPropertiesKey].(bool); !ok || ap {
		t.Fatalf("additionalProperties=%v, want false", schema[additionalPropertiesKey])
	}

	required, ok := schema[requiredKey].([]string)
	if !ok {
		t.Fatalf("required is %T", schema[requiredKey])
	}
	want := map[string]bool{"summary": false, "themes": false}
	for _, f := range required {
		if _, known := want[f]; !known {
			t.Fatalf("unexpected required field %q", f)
		}
		want[f] = true
	}
	for f, seen := range want {
		if !seen {
			t.Fatalf("field %q missing from required", f)
		}
	}
}
