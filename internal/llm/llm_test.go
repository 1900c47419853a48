package llm

import (
	"testing"
)

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"title": "A Headline", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["title"] != "A Headline" {
		t.Errorf("expected title='A Headline', got %v", result["title"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestParseJSONResponseWithCodeFence(t *testing.T) {
	text := "```json\n{\"title\": \"A Headline\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["title"] != "A Headline" {
		t.Errorf("expected title='A Headline', got %v", result["title"])
	}
}

func TestParseJSONResponseWithPlainFence(t *testing.T) {
	text := "```\n{\"title\": \"A Headline\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["title"] != "A Headline" {
		t.Errorf("expected title='A Headline', got %v", result["title"])
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	if ParseJSONResponse("not json at all") != nil {
		t.Error("expected nil for invalid JSON")
	}
}

func TestParseJSONResponseEmpty(t *testing.T) {
	if ParseJSONResponse("") != nil {
		t.Error("expected nil for empty string")
	}
}

func TestStringField(t *testing.T) {
	m := ParseJSONResponse(`{"content": "  body text  ", "n": 3}`)
	if got := StringField(m, "content"); got != "body text" {
		t.Errorf("expected trimmed field, got %q", got)
	}
	if got := StringField(m, "n"); got != "" {
		t.Errorf("non-string field should yield empty, got %q", got)
	}
	if got := StringField(nil, "content"); got != "" {
		t.Errorf("nil map should yield empty, got %q", got)
	}
}
